package can

import (
	"encoding/binary"

	"github.com/fabianbally/canparse/base"
)

var log = base.Logger

// PDU is one CAN frame as carried on the adapter's wire format: a fixed
// big-endian header followed by the payload bytes.
type PDU struct {
	WireTimestamp uint64
	Timestamp     int64
	CanId         uint32
	BusId         uint8
	Direction     uint8
	PayloadLen    uint16
	Payload       []byte
}

type PDUSlice []PDU

func (x PDUSlice) Len() int           { return len(x) }
func (x PDUSlice) Less(i, j int) bool { return x[i].Timestamp < x[j].Timestamp }
func (x PDUSlice) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

// Direction values.
const (
	DirRecv = iota
	DirSend
)

// PDU header layout.
const (
	TimeStampLen = 8
	CanIdLen     = 4
	BusIdLen     = 1
	DirectionLen = 1
	LengthLen    = 2

	PduHeaderLen = TimeStampLen + CanIdLen + BusIdLen + DirectionLen + LengthLen
)

// SplitPDUs parses a buffer of concatenated PDUs. recvTime is stamped onto
// every parsed PDU. A malformed trailer stops parsing; everything parsed up
// to that point is returned.
func SplitPDUs(data []byte, recvTime int64) []PDU {
	var out []PDU

	for len(data) > 0 {
		if len(data) < PduHeaderLen {
			log.Errorf("Invalid data !!! dataLen(%d)", len(data))
			break
		}

		var pdu PDU
		pdu.Timestamp = recvTime
		pdu.WireTimestamp = binary.BigEndian.Uint64(data[:TimeStampLen])
		pdu.CanId = binary.BigEndian.Uint32(data[TimeStampLen : TimeStampLen+CanIdLen])
		pdu.BusId = data[TimeStampLen+CanIdLen]
		pdu.Direction = data[PduHeaderLen-LengthLen-DirectionLen]
		pdu.PayloadLen = binary.BigEndian.Uint16(data[PduHeaderLen-LengthLen : PduHeaderLen])

		pduLen := PduHeaderLen + int(pdu.PayloadLen)
		if len(data) < pduLen {
			log.Errorf("Invalid data !!! pduLen want(%d), has(%d), canId(%d)", pduLen, len(data), pdu.CanId)
			break
		}
		pdu.Payload = data[PduHeaderLen:pduLen]

		data = data[pduLen:]
		out = append(out, pdu)
	}

	return out
}
