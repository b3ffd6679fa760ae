package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"net/http"
	_ "net/http/pprof"

	json "github.com/goccy/go-json"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/fabianbally/canparse/base"
	"github.com/fabianbally/canparse/can"
	"github.com/fabianbally/canparse/dbc"
	"github.com/fabianbally/canparse/rwmap"
	"github.com/fabianbally/canparse/whitelist"
)

// Set by the embed build tag.
var DbcContent []byte

const (
	// outer header preceding the PDU stream in every datagram
	HeaderLen  = 8
	ConfigPath = "./config.json"
)

// msg type
const (
	ETHSendFrame = iota + 1
	CanMirrorToETH
)

type PDUMapType map[uint32]can.PDU

type RecvData struct {
	RecvTime int64
	Data     []byte
}

var (
	CanDataChan   = make(chan RecvData, base.GConfig.DataChanSize)
	MergedPDUChan = make(chan []can.PDU, base.GConfig.DataChanSize)
	signals       = make(chan os.Signal, 1)
	done          = make(chan struct{})
)

var (
	wg  sync.WaitGroup
	log = base.Logger
)

var TotalPdus atomic.Int64

func init() {
	log.SetReportCaller(true)

	switch base.GConfig.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: base.TimestampFormat,
		})
	case "text":
		fallthrough
	default:
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: base.TimestampFormat,
		})
	}
}

func main() {
	if !loadConfig() {
		return
	}

	logFile, err := initLog()
	if err != nil {
		os.Exit(1)
	}
	defer logFile.Close()

	library, err := loadDBC()
	if err != nil {
		log.Errorln("Load DBC failed: ", err)
		os.Exit(1)
	}
	log.Debugf("Load DBC success, %d frames", library.Len())

	if err := whitelist.Init(base.GConfig.WhiteListFile, library, &wg, base.GConfig.EnableWhiteList); err != nil {
		log.Errorln(err)
		return
	}

	if base.GConfig.TestMode {
		startPProf(&base.GConfig.PProf)
	}

	// Trap SIGINT to trigger a graceful shutdown.
	signal.Notify(signals, os.Interrupt)
	wg.Add(1)
	go handleQuit(&wg)

	client := initMQTT()
	defer client.Disconnect(&paho.Disconnect{ReasonCode: 0})

	wg.Add(1)
	go startHttpServer(&wg)

	if base.GConfig.CalcFrameRate {
		ticker := calcFrameRate(base.GConfig.CalcFrameRateInterval, &TotalPdus)
		defer ticker.Stop()
	}

	for i := 0; i < base.GConfig.WorkRoutines; i++ {
		wg.Add(1)
		go handleData(library, client)
	}

	go readData()

	wg.Wait()
}

func loadConfig() bool {
	jData, err := os.ReadFile(ConfigPath)
	if err != nil {
		log.Errorln(err)
		return false
	}

	if err := json.Unmarshal(jData, base.GConfig); err != nil {
		log.Errorln(err)
		return false
	}

	return true
}

func loadDBC() (*dbc.Library, error) {
	var library *dbc.Library
	var err error

	if base.GConfig.EmbedDBC {
		library, err = dbc.FromReader(bytes.NewReader(DbcContent))
	} else {
		library, err = dbc.FromFile(base.GConfig.DBCPath)
	}
	if err != nil {
		return nil, err
	}

	if base.GConfig.DBCExcel != "" {
		if err := dbc.ParseExcel(base.GConfig.DBCExcel, library); err != nil {
			log.Warnln("Load DBC excel failed: ", err)
		}
	}

	return library, nil
}

func initLog() (*os.File, error) {
	logFile := os.Stderr
	if base.GConfig.LogToFile {
		if err := os.MkdirAll("./log", os.ModePerm); err != nil {
			return nil, err
		}

		logName := "./log/" + filepath.Base(os.Args[0])
		strTime := time.Now().Format(base.TimestampFormat)
		strTime = strings.ReplaceAll(strTime, ":", "_")
		logName += "." + strTime + ".log"

		f, err := os.OpenFile(logName, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
		if err != nil {
			return nil, err
		}
		logFile = f
		log.SetOutput(logFile)
		log.Printf("Open %s success !\n", logName)
	}

	level, err := logrus.ParseLevel(base.GConfig.LogLevel)
	if err != nil {
		log.Errorln("ParseLevel failed !!! ", base.GConfig.LogLevel, err)
		return logFile, err
	}
	log.SetLevel(level)

	return logFile, nil
}

func calcFrameRate(interval int, totalPdus *atomic.Int64) *time.Ticker {
	t := time.NewTicker(time.Duration(interval) * time.Second)

	go func(t *time.Ticker) {
		for range t.C {
			log.Infof("(%f)fps", float64(totalPdus.Load())/float64(interval))
			totalPdus.Store(0)
		}
	}(t)

	return t
}

func initInterface(deviceMode bool) (devHandle *os.File, udpHandle net.PacketConn, err error) {
	if deviceMode {
		devHandle, err = os.Open(base.GConfig.DevicePath)
		if err != nil {
			return
		}
		log.Debugf("Open %s success !!!", base.GConfig.DevicePath)
	} else {
		cfg := net.ListenConfig{
			Control: func(network, address string, c syscall.RawConn) error {
				return c.Control(func(fd uintptr) {
					syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEADDR, 1)
					syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEPORT, 1)
				})
			},
		}

		udpHandle, err = cfg.ListenPacket(context.Background(), "udp", base.GConfig.UdpServer.Host)
		if err != nil {
			return
		}

		log.Debugf("Open %s success !!!", base.GConfig.UdpServer.Host)
	}

	return
}

func readData() {
	devHandle, udpHandle, err := initInterface(base.GConfig.DeviceMode)
	if err != nil {
		log.Fatalln(err)
	}
	if devHandle != nil {
		defer devHandle.Close()
	}
	if udpHandle != nil {
		defer udpHandle.Close()
	}

	passThroughCANs := rwmap.NewRWMap(128)
	for _, canId := range base.GConfig.PassThroughCANs {
		passThroughCANs.Set(uint32(canId), true)
	}

	PDUChan := make(chan []can.PDU, base.GConfig.DataChanSize)
	for i := 0; i < base.GConfig.DecodeWorkers; i++ {
		go decodeDatagrams(CanDataChan, PDUChan, passThroughCANs)
	}
	go mergeFrames(PDUChan)

	buf := make([]byte, 8*1024)
	var n int
	for {
		if base.GConfig.DeviceMode {
			n, err = devHandle.Read(buf)
		} else {
			n, _, err = udpHandle.ReadFrom(buf)
		}
		if err != nil {
			log.Errorln(err)
			devHandle, udpHandle, _ = initInterface(base.GConfig.DeviceMode)
			continue
		}
		if n <= 0 {
			continue
		}

		recvData := RecvData{RecvTime: time.Now().UnixMicro()}
		recvData.Data = make([]byte, n)
		copy(recvData.Data, buf)

		select {
		case CanDataChan <- recvData:
		default:
			log.Warnln("CanDataChan full, dropping datagram")
		}
	}
}

func decodeDatagrams(dataChan <-chan RecvData, outChan chan<- []can.PDU, passThroughCANs *rwmap.RWMap) {
	for data := range dataChan {
		if len(data.Data) <= HeaderLen {
			log.Errorf("Invalid data !!! dataLen(%d)", len(data.Data))
			continue
		}

		if msgType := data.Data[2]; msgType != CanMirrorToETH {
			log.Errorf("Unknown msg type !!! msgType(%d)", msgType)
			continue
		}

		pdus := can.SplitPDUs(data.Data[HeaderLen:], data.RecvTime)
		kept := pdus[:0]
		for _, pdu := range pdus {
			TotalPdus.Add(1)
			switch pdu.Direction {
			case can.DirRecv:
				kept = append(kept, pdu)
			case can.DirSend:
				if _, ok := passThroughCANs.Get(pdu.CanId); ok {
					kept = append(kept, pdu)
				}
			default:
				log.Errorf("Unknown direction !!! canId(%d), direction(%d)", pdu.CanId, pdu.Direction)
			}
		}
		if len(kept) == 0 {
			continue
		}

		select {
		case outChan <- kept:
		default:
			log.Warnf("PDUChan full, dropping %d PDUs", len(kept))
		}
	}
}

// mergeFrames deduplicates PDUs by CAN ID over the configured window, so a
// frame repeated at bus rate is published once per FilterInterval.
func mergeFrames(dataChan <-chan []can.PDU) {
	if !base.GConfig.FilterFrames {
		for pdus := range dataChan {
			MergedPDUChan <- pdus
		}
		return
	}

	pduMap := make(PDUMapType, 2*1024)
	var oldest, reset int64

	for pdus := range dataChan {
		latest := pdus[0].Timestamp

		if (latest - oldest) >= int64(base.GConfig.FilterInterval*1000) {
			merged := make([]can.PDU, 0, len(pduMap))
			for _, v := range pduMap {
				merged = append(merged, v)
			}

			// reset the map wholesale from time to time so it cannot
			// keep entries for CAN IDs that stopped appearing
			if (latest - reset) >= int64(base.GConfig.ResetMapInterval)*1000 {
				pduMap = make(PDUMapType, 2*1024)
				reset = latest
			} else {
				for k := range pduMap {
					delete(pduMap, k)
				}
			}
			oldest = latest

			if len(merged) > 0 {
				select {
				case MergedPDUChan <- merged:
				default:
					log.Warnf("MergedPDUChan full, dropping %d PDUs", len(merged))
				}
			}
		}

		for _, pdu := range pdus {
			pduMap[pdu.CanId] = pdu
		}
	}
}

func handleData(library *dbc.Library, client *paho.Client) {
	defer wg.Done()

	for mergedPdus := range MergedPDUChan {
		parseAndPublish(library, mergedPdus, client)
	}

	log.Debugln("HandleData quit !!!")
}

func parseAndPublish(library *dbc.Library, mergedPdus []can.PDU, client *paho.Client) {
	decodedData, rawData := can.ParseToJSON(library, mergedPdus)

	if len(decodedData) > 0 {
		if _, err := client.Publish(context.Background(), &paho.Publish{
			Topic:   base.GConfig.Decoded.Topic,
			QoS:     byte(base.GConfig.Decoded.Qos),
			Retain:  base.GConfig.Decoded.Retained,
			Payload: decodedData,
		}); err != nil {
			log.Errorln("Decoded error sending message: ", err)
		}
	} else {
		log.Debugln("No decoded data")
	}

	if len(rawData) > 0 {
		if _, err := client.Publish(context.Background(), &paho.Publish{
			Topic:   base.GConfig.Raw.Topic,
			QoS:     byte(base.GConfig.Raw.Qos),
			Retain:  base.GConfig.Raw.Retained,
			Payload: rawData,
		}); err != nil {
			log.Errorln("Raw error sending message: ", err)
		}
	} else {
		log.Debugln("No raw data")
	}
}

func initMQTT() *paho.Client {
	tcpConn, err := net.Dial("tcp", base.GConfig.Broker)
	if err != nil {
		log.Fatalln("Failed to connect to ", base.GConfig.Broker, "reason:", err)
	}
	log.Debugln("Success to connect to ", base.GConfig.Broker)

	tcpConn = packets.NewThreadSafeConn(tcpConn)

	client := paho.NewClient(paho.ClientConfig{
		Conn: tcpConn,
	})

	cp := &paho.Connect{
		KeepAlive:  30,
		ClientID:   base.GConfig.Clientid,
		CleanStart: true,
		Username:   base.GConfig.Username,
		Password:   []byte(base.GConfig.Password),
	}
	if base.GConfig.Username != "" {
		cp.UsernameFlag = true
	}
	if base.GConfig.Password != "" {
		cp.PasswordFlag = true
	}

	ca, err := client.Connect(context.Background(), cp)
	if err != nil {
		log.Fatalln(err)
	}
	if ca.ReasonCode != 0 {
		log.Fatalf("Failed to connect to %s : %d - %s", base.GConfig.Broker, ca.ReasonCode, ca.Properties.ReasonString)
	}

	log.Debugf("Connected to %s\n", base.GConfig.Broker)
	return client
}

func startHttpServer(wg *sync.WaitGroup) {
	defer wg.Done()
	http.HandleFunc(base.GConfig.HttpServer.HealthCheckURI, Pong)
	http.HandleFunc(base.GConfig.HttpServer.WhiteListURI, whitelist.SetWhiteList)
	http.ListenAndServe(base.GConfig.HttpServer.ServerAddr, nil)
}

func Pong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func startPProf(pprof *base.PProf) {
	server := &HttpServer{
		Server: &http.Server{
			Addr:    pprof.Addr,
			Handler: nil,
		},
	}

	go server.WaitExitSignal(pprof.Timeout * time.Second)
	go func(server *HttpServer) {
		if err := server.ListenAndServe(); err != nil {
			log.Errorln("unexpected error from ListenAndServe: ", "reason:", err)
		}

		log.Debugln("pprof goroutine exited.")
	}(server)
}

func handleQuit(wg *sync.WaitGroup) {
	defer wg.Done()

	<-signals
	log.Debugln("recv interrupt signal")
	log.Infof("TotalPdus(%d)", TotalPdus.Load())

	time.Sleep(time.Second)
	close(done)
	os.Exit(0)
}
