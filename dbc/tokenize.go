package dbc

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Keywords starting a DBC directive.
const (
	kVersion   = "VERSION"
	kNS        = "NS_"
	kBS        = "BS_"
	kBU        = "BU_"
	kValTable  = "VAL_TABLE_"
	kBO        = "BO_"
	kSG        = "SG_"
	kCM        = "CM_"
	kVAL       = "VAL_"
	kBADef     = "BA_DEF_"
	kBADefDef  = "BA_DEF_DEF_"
	kSigValTyp = "SIG_VALTYPE_"
)

// ErrNoMatch is returned by ParseLine for a line no grammar rule applies to.
var ErrNoMatch = errors.New("dbc: no grammar rule matches line")

var (
	reFrameDef  = regexp.MustCompile(`^BO_ (?P<id>\d+) (?P<name>\S+) ?: (?P<len>\d+) (?P<sender>.*) ?`)
	reFrameDesc = regexp.MustCompile(`CM_ BO_ (?P<id>\d+) "(?P<text>.*)";`)
	reFrameAttr = regexp.MustCompile(`BA_ "(?P<key>\w+)" BO_ (?P<id>\d+) (?P<value>\S*);`)

	num       = `-?\d+(?:\.\d+)?(?:e-?\d+)?`
	reSigDef  = regexp.MustCompile(`SG_ (?P<name>\S+)[ \t](?:(?:m\d+)|M)? ?: ?(?P<start>\d+)\|(?P<len>\d+)@(?P<endian>\d)(?P<sign>[+-]) \((?P<scale>` + num + `),(?P<offset>` + num + `)\) \[(?P<min>` + num + `)\|(?P<max>` + num + `)\] "(?P<unit>.*)" (?P<receivers>.*)`)
	reSigDesc = regexp.MustCompile(`CM_ SG_ (?P<id>\d+) (?P<name>\w+)[ \t]"(?P<text>.*)";`)
	reSigAttr = regexp.MustCompile(`BA_ "(?P<key>\w+)" SG_ (?P<id>\d+) (?P<name>\w+)[ \t]"?(?P<value>\w+)"?;`)

	reValTable = regexp.MustCompile(`^VAL_ (?P<id>\d+) (?P<name>\w+)(?P<pairs>(?: \d+ "[^"]*")+) ?;`)
	reValPair  = regexp.MustCompile(` (\d+) "([^"]*)"`)

	reVersion = regexp.MustCompile(`^VERSION "(?P<text>.*)"`)
	reBusCfg  = regexp.MustCompile(`^BS_ ?: ?(?P<speed>\d+(?:\.\d+)?)`)
)

// Directives the grammar knows of but the model does not represent. Lines
// starting with one of these become an Unknown entry instead of ErrNoMatch.
var unknownDirectives = []string{
	kBADefDef, kBADef, kValTable, kVAL, kNS, kBU, kBS, kCM, kSigValTyp,
}

// ParseLine tokenizes a single DBC source line into an Entry. The multiplexer
// marker on SG_ lines is matched and discarded; multiplexed signals are
// otherwise treated like plain signals.
func ParseLine(line string) (Entry, error) {
	if m := capture(reFrameDef, line); m != nil {
		return FrameDefinition{
			ID:     parseU32(m["id"]),
			Name:   m["name"],
			Length: parseU32(m["len"]),
			Sender: strings.TrimSpace(m["sender"]),
		}, nil
	}
	if m := capture(reFrameDesc, line); m != nil {
		return FrameDescription{ID: parseU32(m["id"]), Text: m["text"]}, nil
	}
	if m := capture(reFrameAttr, line); m != nil {
		return FrameAttribute{ID: parseU32(m["id"]), Key: m["key"], Value: m["value"]}, nil
	}
	if m := capture(reSigDef, line); m != nil {
		return SignalDefinition{
			Name:         m["name"],
			StartBit:     parseUint(m["start"]),
			BitLen:       parseUint(m["len"]),
			LittleEndian: m["endian"] == "1",
			Signed:       m["sign"] == "-",
			Scale:        parseF32(m["scale"]),
			Offset:       parseF32(m["offset"]),
			Min:          parseF32(m["min"]),
			Max:          parseF32(m["max"]),
			Unit:         m["unit"],
			Receivers:    m["receivers"],
		}, nil
	}
	if m := capture(reSigDesc, line); m != nil {
		return SignalDescription{ID: parseU32(m["id"]), SignalName: m["name"], Text: m["text"]}, nil
	}
	if m := capture(reSigAttr, line); m != nil {
		return SignalAttribute{ID: parseU32(m["id"]), SignalName: m["name"], Key: m["key"], Value: m["value"]}, nil
	}
	if m := capture(reValTable, line); m != nil {
		values := make(map[uint64]string)
		for _, pair := range reValPair.FindAllStringSubmatch(m["pairs"], -1) {
			ordinal, _ := strconv.ParseUint(pair[1], 10, 64)
			values[ordinal] = pair[2]
		}
		return SignalValueTable{ID: parseU32(m["id"]), SignalName: m["name"], Values: values}, nil
	}
	if m := capture(reVersion, line); m != nil {
		return Version{Text: m["text"]}, nil
	}
	if m := capture(reBusCfg, line); m != nil {
		return BusConfiguration{Speed: parseF32(m["speed"])}, nil
	}

	first := strings.ToUpper(strings.TrimSpace(line))
	for _, directive := range unknownDirectives {
		if strings.HasPrefix(first, directive) {
			return Unknown{Raw: line}, nil
		}
	}

	return nil, ErrNoMatch
}

// capture returns the named submatches of re applied to line, or nil when the
// line does not match.
func capture(re *regexp.Regexp, line string) map[string]string {
	match := re.FindStringSubmatch(line)
	if match == nil {
		return nil
	}

	m := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if name != "" {
			m[name] = match[i]
		}
	}
	return m
}

// The capture patterns only hand over well-formed numbers, so conversion
// errors are ignored the same way the rest of the module treats them.

func parseU32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}

func parseUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}

func parseF32(s string) float32 {
	v, _ := strconv.ParseFloat(s, 32)
	return float32(v)
}
