package infrastructure

import (
	"math/rand"
	"time"
)

// SystemClock reads the real wall clock.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now() }

// RandJitter draws fraud-score jitter from math/rand. The top-level
// functions of math/rand are safe for concurrent use.
type RandJitter struct{}

func NewRandJitter() RandJitter { return RandJitter{} }

// Jitter returns a uniform value in [0, 0.2).
func (RandJitter) Jitter() float64 { return rand.Float64() * 0.2 }
