// SPDX-License-Identifier: MIT

package probe

import (
	"fmt"
	"time"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// Statistics tracks probe verdict counts and rates for one session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalProbes    uint64
	Acks           uint64
	ErrorPatterns  uint64
	UnexpectedData uint64
	Unresponsive   uint64
	CrashSuspected uint64
	Hazardous      uint64

	PerFamily map[mbp481.Family]uint64

	// Rates (calculated)
	ProbeRate   float64 // probes/sec
	TimeoutRate float64 // timeouts/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		PerFamily:      make(map[mbp481.Family]uint64),
	}
}

// Update folds one probe result into the counters
func (s *Statistics) Update(res *ProbeResult) {
	s.TotalProbes++
	s.PerFamily[res.Family]++
	if res.Hazardous {
		s.Hazardous++
	}

	switch res.Verdict.Kind {
	case mbp481.VerdictAck:
		s.Acks++
	case mbp481.VerdictErrorPattern:
		s.ErrorPatterns++
	case mbp481.VerdictUnexpectedData:
		s.UnexpectedData++
	case mbp481.VerdictUnresponsive:
		s.Unresponsive++
	case mbp481.VerdictCrashSuspected:
		s.CrashSuspected++
	}

	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates probe and timeout rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ProbeRate = float64(s.TotalProbes) / elapsed
		s.TimeoutRate = float64(s.Unresponsive+s.CrashSuspected) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var ackPercent, errPercent, unexpPercent, silentPercent float64
	if s.TotalProbes > 0 {
		ackPercent = float64(s.Acks) * 100.0 / float64(s.TotalProbes)
		errPercent = float64(s.ErrorPatterns) * 100.0 / float64(s.TotalProbes)
		unexpPercent = float64(s.UnexpectedData) * 100.0 / float64(s.TotalProbes)
		silentPercent = float64(s.Unresponsive) * 100.0 / float64(s.TotalProbes)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Probes:    %8d\n", s.TotalProbes)
	result += fmt.Sprintf("Acks:            %8d (%.1f%%)\n", s.Acks, ackPercent)

	if s.ErrorPatterns > 0 {
		result += fmt.Sprintf("Error Patterns:  %8d (%.1f%%)\n", s.ErrorPatterns, errPercent)
	}
	if s.UnexpectedData > 0 {
		result += fmt.Sprintf("Unexpected Data: %8d (%.1f%%)\n", s.UnexpectedData, unexpPercent)
	}
	if s.Unresponsive > 0 {
		result += fmt.Sprintf("Unresponsive:    %8d (%.1f%%)\n", s.Unresponsive, silentPercent)
	}
	if s.CrashSuspected > 0 {
		result += fmt.Sprintf("Crash Suspected: %8d\n", s.CrashSuspected)
	}
	if s.Hazardous > 0 {
		result += fmt.Sprintf("Hazardous Sent:  %8d\n", s.Hazardous)
	}
	for fam, n := range s.PerFamily {
		result += fmt.Sprintf("  %-14s %8d\n", fam.String()+":", n)
	}

	result += fmt.Sprintf("Probe Rate:      %8.1f probes/sec\n", s.ProbeRate)
	result += fmt.Sprintf("Timeout Rate:    %8.1f timeouts/sec\n", s.TimeoutRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalProbes = 0
	s.Acks = 0
	s.ErrorPatterns = 0
	s.UnexpectedData = 0
	s.Unresponsive = 0
	s.CrashSuspected = 0
	s.Hazardous = 0
	s.PerFamily = make(map[mbp481.Family]uint64)
	s.ProbeRate = 0
	s.TimeoutRate = 0
}
