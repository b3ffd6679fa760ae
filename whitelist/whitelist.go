package whitelist

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/fabianbally/canparse/base"
	"github.com/fabianbally/canparse/dbc"
)

var log = base.Logger

// Response codes.
const (
	OK uint = iota
	ReadBodyError
	ParseJsonError
	InvalidAction
	WrongHttpMethod
)

// Actions.
const (
	DoResetWith int = iota + 1
	DoAdd
	DoDelete
)

var statusText = map[uint]string{
	OK:              "OK",
	ReadBodyError:   "Read body error",
	ParseJsonError:  "Parse json error",
	InvalidAction:   "Invalid action",
	WrongHttpMethod: "Wrong http method, should use POST",
}

type WhiteListRsp struct {
	StatusCode uint   `json:"statusCode"`
	Reason     string `json:"reason"`
}

// WhiteListReq is both the HTTP request body and the on-disk file format.
// CanList maps a decimal CAN ID to signal names; the single element "*"
// expands to every signal the library knows for that frame.
type WhiteListReq struct {
	TaskId    int                 `json:"taskId"`
	Action    int                 `json:"action"`
	CanList   map[string][]string `json:"canList"`
	TimeStamp string              `json:"timeStamp"`
}

type WhiteListMap map[uint32]map[string]bool

// WhiteList filters which frames and signals get decoded.
type WhiteList struct {
	mu           sync.Mutex
	whiteListMap WhiteListMap
	lib          *dbc.Library
	enable       bool
	file         string
	saveChan     chan struct{}
}

var gWhiteList = &WhiteList{
	whiteListMap: make(WhiteListMap),
	saveChan:     make(chan struct{}, 1),
}

// Init loads the whitelist file (a missing file is not an error), binds the
// library used for "*" expansion and starts the async save goroutine.
func Init(file string, lib *dbc.Library, wg *sync.WaitGroup, enable bool) error {
	gWhiteList.mu.Lock()
	gWhiteList.file = file
	gWhiteList.lib = lib
	gWhiteList.enable = enable
	gWhiteList.mu.Unlock()

	data, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	} else {
		var req WhiteListReq
		if err := json.Unmarshal(data, &req); err != nil {
			return err
		}
		gWhiteList.add(&req)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range gWhiteList.saveChan {
			if err := gWhiteList.save(); err != nil {
				log.Errorln("Save whitelist failed: ", err)
			}
		}
	}()

	return nil
}

func SetEnableFlag(enable bool) {
	gWhiteList.setEnableFlag(enable)
}

func IsEnable() bool {
	return gWhiteList.isEnable()
}

func QueryByCanId(canId uint32) bool {
	return gWhiteList.queryByCanId(canId)
}

func QueryByCanIdAndSignal(canId uint32, signal string) bool {
	return gWhiteList.queryByCanIdAndSignal(canId, signal)
}

func (w *WhiteList) setEnableFlag(enable bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enable = enable
}

func (w *WhiteList) isEnable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enable
}

func (w *WhiteList) queryByCanId(canId uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.whiteListMap[canId]
	return ok
}

func (w *WhiteList) queryByCanIdAndSignal(canId uint32, signal string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if signals, ok := w.whiteListMap[canId]; ok {
		return signals[signal]
	}
	return false
}

func (w *WhiteList) resetWith(req *WhiteListReq) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.whiteListMap = WhiteListMap{}
	w.innerAdd(req)
}

func (w *WhiteList) add(req *WhiteListReq) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.innerAdd(req)
}

func (w *WhiteList) innerAdd(req *WhiteListReq) {
	for strCanId, reqSignals := range req.CanList {
		canId, err := strconv.ParseUint(strCanId, 10, 32)
		if err != nil {
			log.Errorln(err)
			continue
		}

		signals := w.whiteListMap[uint32(canId)]
		if signals == nil {
			signals = make(map[string]bool)
			w.whiteListMap[uint32(canId)] = signals
		}

		for _, signal := range w.expand(uint32(canId), reqSignals) {
			signals[signal] = true
		}
	}
}

func (w *WhiteList) delete(req *WhiteListReq) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for strCanId, reqSignals := range req.CanList {
		canId, err := strconv.ParseUint(strCanId, 10, 32)
		if err != nil {
			log.Errorln(err)
			continue
		}

		signals, ok := w.whiteListMap[uint32(canId)]
		if !ok {
			continue
		}

		for _, signal := range w.expand(uint32(canId), reqSignals) {
			delete(signals, signal)
		}

		if len(signals) == 0 {
			delete(w.whiteListMap, uint32(canId))
		}
	}
}

// expand resolves the "*" wildcard to the frame's signal names.
func (w *WhiteList) expand(canId uint32, signals []string) []string {
	if len(signals) != 1 || signals[0] != "*" {
		return signals
	}

	if w.lib == nil {
		return nil
	}
	frame, ok := w.lib.Frame(canId)
	if !ok {
		log.Errorf("No dbc data !!! canId(%d)", canId)
		return nil
	}
	return frame.SignalNames()
}

func (w *WhiteList) save() error {
	w.mu.Lock()
	req := WhiteListReq{CanList: make(map[string][]string, len(w.whiteListMap))}
	for canId, signals := range w.whiteListMap {
		names := make([]string, 0, len(signals))
		for name := range signals {
			names = append(names, name)
		}
		req.CanList[strconv.FormatUint(uint64(canId), 10)] = names
	}
	file := w.file
	w.mu.Unlock()

	data, err := json.Marshal(&req)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0o644)
}

func (w *WhiteList) requestSave() {
	select {
	case w.saveChan <- struct{}{}:
	default:
	}
}

// SetWhiteList is the HTTP handler mutating the whitelist at runtime.
func SetWhiteList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rspByCode(w, WrongHttpMethod, http.StatusMethodNotAllowed)
		return
	}

	all, err := io.ReadAll(r.Body)
	if err != nil {
		rspByCode(w, ReadBodyError, http.StatusInternalServerError)
		return
	}

	req := WhiteListReq{}
	if err := json.Unmarshal(all, &req); err != nil {
		rspByCode(w, ParseJsonError, http.StatusUnprocessableEntity)
		return
	}

	switch req.Action {
	case DoResetWith:
		gWhiteList.resetWith(&req)
	case DoAdd:
		gWhiteList.add(&req)
	case DoDelete:
		gWhiteList.delete(&req)
	default:
		rspByCode(w, InvalidAction, http.StatusUnprocessableEntity)
		return
	}

	gWhiteList.requestSave()
	rspByCode(w, OK, http.StatusOK)
}

func rspByCode(w http.ResponseWriter, errCode uint, statusCode int) {
	rsp, _ := json.Marshal(&WhiteListRsp{errCode, statusText[errCode]})
	w.WriteHeader(statusCode)
	w.Write(rsp)
}
