package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	randomLock   sync.Mutex
	randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NextFloat64 returns a uniform random float64 in [0, 1).
// Safe for use from multiple client routines.
func NextFloat64() float64 {
	randomLock.Lock()
	defer randomLock.Unlock()
	return randomSource.Float64()
}

// NextInt64 returns a uniform random int64 in [0, n).
func NextInt64(n int64) int64 {
	randomLock.Lock()
	defer randomLock.Unlock()
	return randomSource.Int63n(n)
}

// NextGaussian returns a normally distributed float64 with
// mean 0 and standard deviation 1.
func NextGaussian() float64 {
	randomLock.Lock()
	defer randomLock.Unlock()
	return randomSource.NormFloat64()
}

const alnumChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomAlnum returns a random alphanumeric string of the given length.
func RandomAlnum(length int64) string {
	randomLock.Lock()
	defer randomLock.Unlock()
	b := make([]byte, length)
	for i := range b {
		b[i] = alnumChars[randomSource.Intn(len(alnumChars))]
	}
	return string(b)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
