package yacs

import (
	"time"
)

func NowNanos() int64 {
	return time.Now().UnixNano()
}

func sleepNanos(nanos int64) {
	time.Sleep(time.Duration(nanos))
}

func NanosToMicros(nanos int64) int64 {
	return nanos / 1000
}

func MillisToNanos(millis int64) int64 {
	return millis * 1000 * 1000
}
