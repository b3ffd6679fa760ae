package base

import (
	"time"
)

type MQTTTopic struct {
	Topic    string
	Qos      int
	Retained bool
}

type MQTT struct {
	Decoded  MQTTTopic
	Raw      MQTTTopic
	Broker   string
	Clientid string
	Username string
	Password string
}

type HttpServer struct {
	ServerAddr     string // in the form "host:port"
	HealthCheckURI string // default: /ping
	WhiteListURI   string
}

type LOG struct {
	LogToFile bool
	Format    string // json, text
	LogLevel  string // panic, fatal, error, warn warning, info, debug, trace
}

type PProf struct {
	Addr    string
	Timeout time.Duration
}

type TEST struct {
	TestMode        bool
	EnableWhiteList bool
	PProf           `json:"PProf"`
}

type UdpServer struct {
	Host string
}

type DataSource struct {
	DeviceMode bool // read the PDU stream from a character device instead of UDP
	DevicePath string
	UdpServer  `json:"UdpServer"`
}

type Filter struct {
	FilterFrames     bool
	FilterInterval   int // milliseconds between publishes of the dedup window
	ResetMapInterval int // milliseconds between full resets of the dedup map
}

type DBC struct {
	EmbedDBC bool // true: DBC file compiled into the binary with the embed tag
	DBCPath  string
	DBCExcel string
}

type Config struct {
	MQTT          `json:"MQTT"`
	HttpServer    `json:"HttpServer"`
	DataChanSize  uint
	WorkRoutines  int
	DecodeWorkers int
	DBC           `json:"DBC"`
	WhiteListFile string
	LOG           `json:"LOG"`
	Filter        `json:"Filter"`
	CalcFrameRate bool
	// seconds between frame rate log lines
	CalcFrameRateInterval int
	TEST                  `json:"TEST"`
	DataSource            `json:"DataSource"`
	PassThroughCANs       []int
}

func NewConfig() *Config {
	return &Config{
		MQTT:                  MQTT{},
		HttpServer:            HttpServer{},
		DataChanSize:          10000,
		WorkRoutines:          10,
		DecodeWorkers:         10,
		DBC:                   DBC{false, "./can.dbc", "./can.xlsx"},
		WhiteListFile:         "./whitelist.json",
		LOG:                   LOG{false, "text", "info"},
		Filter:                Filter{true, 10, 600000},
		CalcFrameRate:         true,
		CalcFrameRateInterval: 5,
		TEST:                  TEST{},
		DataSource:            DataSource{},
		PassThroughCANs:       []int{},
	}
}

var GConfig = NewConfig()
