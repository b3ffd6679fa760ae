package can

import (
	"bytes"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/fabianbally/canparse/dbc"
	"github.com/fabianbally/canparse/whitelist"
)

type signalValue struct {
	name  string
	value float32
}

type decodedFrame struct {
	timeStamp int64
	canName   string
	canId     uint32
	busId     uint8
	direction uint8
	signals   []signalValue
	payload   []byte
}

// ParseToJSON decodes a batch of PDUs against the library and renders two
// documents: one with the decoded signal values of whitelisted frames and one
// with the raw candump-style lines of everything else. When the whitelist is
// disabled every decodable frame lands in the first document.
func ParseToJSON(lib *dbc.Library, pdus []PDU) (decodedJson []byte, rawJson []byte) {
	var decoded, raw []*decodedFrame

	for i := range pdus {
		pdu := &pdus[i]
		frame := &decodedFrame{
			timeStamp: pdu.Timestamp / 1000,
			canId:     pdu.CanId,
			busId:     pdu.BusId,
			direction: pdu.Direction,
			payload:   pdu.Payload,
		}

		if whitelist.IsEnable() && !whitelist.QueryByCanId(pdu.CanId) {
			raw = append(raw, frame)
			continue
		}

		if !decodeFramePDU(lib, pdu, frame) {
			continue
		}
		decoded = append(decoded, frame)
	}

	return toDecodedJson(decoded), toRawJson(raw)
}

func decodeFramePDU(lib *dbc.Library, pdu *PDU, out *decodedFrame) bool {
	record, ok := lib.Frame(pdu.CanId)
	if !ok {
		log.Warnf("No dbc data !!! canId(%d)", pdu.CanId)
		return false
	}

	out.canName = record.Name()
	for _, name := range record.SignalNames() {
		if whitelist.IsEnable() && !whitelist.QueryByCanIdAndSignal(pdu.CanId, name) {
			continue
		}

		sig, _ := record.Signal(name)
		value, err := DecodeSignal(sig, pdu.Payload)
		if err != nil {
			log.Warnf("Decode (%s) failed: %v", name, err)
			continue
		}
		out.signals = append(out.signals, signalValue{name: name, value: value})
	}
	return true
}

// CanData is the per-frame JSON object; signal values are flattened into it.
type CanData struct {
	CanId     uint32 `json:"id"`
	BusId     uint8  `json:"bus"`
	Direction uint8  `json:"d"`
	TimeStamp int64  `json:"t"`
	Signals   map[string]any
}

// JsonData is the batch document: a shared timestamp, the raw line per frame
// name and one CanData per frame name.
type JsonData struct {
	TimeStamp int64             `json:"ts"`
	Raw       map[string]string `json:"raw"`
	Attr      map[string]*CanData
}

func (j *JsonData) MarshalJSON() ([]byte, error) {
	datas := make(map[string]any, len(j.Attr)+2)
	datas["ts"] = j.TimeStamp
	datas["raw"] = j.Raw

	for name, v := range j.Attr {
		frame := make(map[string]any, len(v.Signals)+4)
		frame["id"] = v.CanId
		frame["bus"] = v.BusId
		frame["d"] = v.Direction
		frame["t"] = v.TimeStamp
		for sig, val := range v.Signals {
			frame[sig] = val
		}

		datas[name] = frame
	}

	return jsoniter.Marshal(datas)
}

func toDecodedJson(frames []*decodedFrame) []byte {
	if len(frames) == 0 {
		return nil
	}

	timeStamp := frames[0].timeStamp
	jData := &JsonData{
		TimeStamp: timeStamp,
		Raw:       make(map[string]string, len(frames)),
		Attr:      make(map[string]*CanData, len(frames)),
	}

	for _, frame := range frames {
		jData.Raw[frame.canName] = rawLine(frame)

		canData := &CanData{
			CanId:     frame.canId,
			BusId:     frame.busId,
			Direction: frame.direction,
			TimeStamp: timeStamp,
			Signals:   make(map[string]any, len(frame.signals)),
		}
		for _, sig := range frame.signals {
			canData.Signals[sig.name] = sig.value
		}
		jData.Attr[frame.canName] = canData
	}

	retJson, err := jsoniter.Marshal(jData)
	if err != nil {
		log.Errorln(err)
	}
	return retJson
}

func toRawJson(frames []*decodedFrame) []byte {
	if len(frames) == 0 {
		return nil
	}

	var out []byte
	for _, frame := range frames {
		out = append(out, rawLine(frame)...)
		out = append(out, '\n')
	}
	return out
}

// rawLine renders one frame in the candump-ish log format:
// "1690681909000 8 372 Rx d 8 00 00 00 AA 0D 00 00 00"
func rawLine(frame *decodedFrame) string {
	var b bytes.Buffer
	b.WriteString(strconv.FormatInt(frame.timeStamp, 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(frame.busId), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(frame.canId), 10))
	b.WriteByte(' ')

	switch frame.direction {
	case DirRecv:
		b.WriteString("Rx d")
	case DirSend:
		b.WriteString("Tx d")
	}

	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(len(frame.payload)))
	for _, oneByte := range frame.payload {
		fmt.Fprintf(&b, " %02X", oneByte)
	}
	return b.String()
}
