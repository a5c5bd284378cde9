package logging

import (
	"time"
)

// LogMessage is a single decoded log record.
type LogMessage struct {
	ID         string
	Time       time.Time
	Level      string
	Message    string `json:"msg"`
	Attributes []Attr
}

type Attr struct {
	Key   string
	Value string
}
