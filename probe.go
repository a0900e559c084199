package serial

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Transport is the part of a Port the prober needs.
type Transport interface {
	Write(data []byte) (int, error)
	ReadWithTimeout(timeout time.Duration) ([]byte, error)
	Close() error
}

// OpenFunc opens a candidate for probing.
type OpenFunc func(path string) (Transport, error)

// MatchFunc decides whether a response identifies the target device.
type MatchFunc func(response string) bool

// ContainsMatch matches responses that contain substr.
func ContainsMatch(substr string) MatchFunc {
	return func(response string) bool {
		return strings.Contains(response, substr)
	}
}

// ProbeResult is the outcome of probing one candidate.
type ProbeResult struct {
	Path     string
	Matched  bool
	Response string
	Err      error // why the candidate could not be probed, if it could not
}

// MatchPolicy picks the reported result when several candidates match.
type MatchPolicy int

const (
	// PolicyFirst reports the earliest match in scan order.
	PolicyFirst MatchPolicy = iota
	// PolicyLast reports the latest match in scan order.
	PolicyLast
)

// ParseMatchPolicy parses "first" or "last".
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(s) {
	case "", "first":
		return PolicyFirst, nil
	case "last":
		return PolicyLast, nil
	default:
		return PolicyFirst, errors.New("unknown match policy " + s + " (want first or last)")
	}
}

func (m MatchPolicy) String() string {
	if m == PolicyLast {
		return "last"
	}
	return "first"
}

// Select returns the result chosen by the policy.
func (m MatchPolicy) Select(results []ProbeResult) (ProbeResult, bool) {
	if m == PolicyLast {
		return LastMatch(results)
	}
	return FirstMatch(results)
}

// FirstMatch returns the earliest matching result.
func FirstMatch(results []ProbeResult) (ProbeResult, bool) {
	for _, r := range results {
		if r.Matched {
			return r, true
		}
	}
	return ProbeResult{}, false
}

// LastMatch returns the latest matching result.
func LastMatch(results []ProbeResult) (ProbeResult, bool) {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Matched {
			return results[i], true
		}
	}
	return ProbeResult{}, false
}

// Prober sends a command to each candidate port and records which ones
// answer as expected.
type Prober struct {
	// Open opens a candidate. Defaults to Open with Options.
	Open    OpenFunc
	Options []Option
	Logger  *zap.SugaredLogger
}

// NewProber creates a prober using the real serial transport.
func NewProber(logger *zap.SugaredLogger, opts ...Option) *Prober {
	return &Prober{Options: opts, Logger: logger}
}

func (p *Prober) logger() *zap.SugaredLogger {
	if p.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return p.Logger
}

func (p *Prober) open(path string) (Transport, error) {
	if p.Open != nil {
		return p.Open(path)
	}
	return Open(path, p.Options...)
}

// Probe visits every candidate in order, including after a match. Each one
// is opened, sent command, read for up to timeout, tested with match and
// closed before moving on. Failures are logged and recorded as non-matches.
// The scan stops early only if ctx is cancelled between candidates.
func (p *Prober) Probe(ctx context.Context, candidates iter.Seq[string], command []byte, match MatchFunc, timeout time.Duration) []ProbeResult {
	log := p.logger()
	var results []ProbeResult

	for path := range candidates {
		if err := ctx.Err(); err != nil {
			log.Debugw("probe cancelled", "next", path, "error", err)
			break
		}
		results = append(results, p.probeOne(log, path, command, match, timeout))
	}

	return results
}

func (p *Prober) probeOne(log *zap.SugaredLogger, path string, command []byte, match MatchFunc, timeout time.Duration) ProbeResult {
	result := ProbeResult{Path: path}

	t, err := p.open(path)
	if err != nil {
		result.Err = err
		if errors.Is(err, ErrDeviceNotFound) {
			log.Debugw("candidate absent", "port", path)
		} else {
			log.Warnw("cannot open candidate", "port", path, "error", err)
		}
		return result
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Debugw("close", "port", path, "error", err)
		}
	}()

	if _, err := t.Write(command); err != nil {
		result.Err = err
		log.Warnw("probe write failed", "port", path, "error", err)
		return result
	}

	response, err := t.ReadWithTimeout(timeout)
	if err != nil {
		result.Err = err
		log.Warnw("probe read failed", "port", path, "error", err)
		return result
	}

	result.Response = string(response)
	result.Matched = match(result.Response)
	log.Debugw("probed", "port", path, "matched", result.Matched, "response", result.Response)
	return result
}
