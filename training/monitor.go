package training

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/tkoren/go-multitask/tensor"
)

// Monitor phases. Accumulators and history are partitioned per phase, so
// validation bookkeeping never disturbs training bookkeeping.
const (
	PhaseTrain = "train"
	PhaseTest  = "test"
)

// MetricIterTime is the built-in wall-time metric logged once per iteration.
const MetricIterTime = "iter_time"

// accumulator is one metric's in-progress averaging window.
type accumulator struct {
	num   float64
	denom float64
}

// AvgPoint is one flushed average, tagged with the iteration it was
// computed at. History entries are immutable once appended.
type AvgPoint struct {
	Iter  int     `json:"iter"`
	Value float64 `json:"value"`
}

// LearningMonitor tracks running numerator/denominator sums per (phase,
// metric) pair and a persistent history of flushed averages. A flush converts
// the current window into one history entry and resets the window to exactly
// zero; metrics whose denominator is zero are skipped.
type LearningMonitor struct {
	accums  map[string]map[string]*accumulator
	history map[string]map[string][]AvgPoint
}

// NewLearningMonitor creates an empty monitor.
func NewLearningMonitor() *LearningMonitor {
	return &LearningMonitor{
		accums:  make(map[string]map[string]*accumulator),
		history: make(map[string]map[string][]AvgPoint),
	}
}

func (lm *LearningMonitor) accum(phase, metric string) *accumulator {
	phaseAccums, ok := lm.accums[phase]
	if !ok {
		phaseAccums = make(map[string]*accumulator)
		lm.accums[phase] = phaseAccums
	}
	acc, ok := phaseAccums[metric]
	if !ok {
		acc = &accumulator{}
		phaseAccums[metric] = acc
	}
	return acc
}

// AddToNum adds each value to its metric's running numerator.
func (lm *LearningMonitor) AddToNum(values map[string]float64, phase string) {
	for metric, v := range values {
		lm.accum(phase, metric).num += v
	}
}

// AddToDenom adds each count to its metric's running denominator.
func (lm *LearningMonitor) AddToDenom(counts map[string]float64, phase string) {
	for metric, v := range counts {
		lm.accum(phase, metric).denom += v
	}
}

// ComputeAvgs flushes the phase's accumulation window: every metric with a
// nonzero denominator gets num/denom appended to its history at the given
// iteration, and its accumulators reset to zero.
func (lm *LearningMonitor) ComputeAvgs(iteration int, phase string) {
	phaseAccums := lm.accums[phase]
	if phaseAccums == nil {
		return
	}

	phaseHistory, ok := lm.history[phase]
	if !ok {
		phaseHistory = make(map[string][]AvgPoint)
		lm.history[phase] = phaseHistory
	}

	for metric, acc := range phaseAccums {
		if acc.denom == 0 {
			continue
		}
		phaseHistory[metric] = append(phaseHistory[metric], AvgPoint{
			Iter:  iteration,
			Value: acc.num / acc.denom,
		})
		acc.num = 0
		acc.denom = 0
	}
}

// GetLastValue returns the most recently flushed average for a metric. It
// never reflects in-progress, unflushed accumulation.
func (lm *LearningMonitor) GetLastValue(metric, phase string) (float64, error) {
	points := lm.history[phase][metric]
	if len(points) == 0 {
		return 0, fmt.Errorf("no flushed history for metric %q in phase %q", metric, phase)
	}
	return points[len(points)-1].Value, nil
}

// History returns a copy of a metric's flushed averages for a phase.
func (lm *LearningMonitor) History(metric, phase string) []AvgPoint {
	return append([]AvgPoint(nil), lm.history[phase][metric]...)
}

// statsFile is the persisted form of the monitor: the full flushed history
// for every phase, tagged with the iteration the snapshot was taken at.
type statsFile struct {
	Iteration int                              `json:"iteration"`
	History   map[string]map[string][]AvgPoint `json:"history"`
}

// Save serializes the complete history to path, tagged with iteration. The
// artifact alone is sufficient to reconstruct the monitor's history.
func (lm *LearningMonitor) Save(path string, iteration int) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create stats file")
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(statsFile{Iteration: iteration, History: lm.history}); err != nil {
		return errors.Wrap(err, "failed to encode stats")
	}
	return nil
}

// LoadLearningMonitor reconstructs a monitor's history from a saved stats
// artifact, returning the iteration the snapshot was tagged with.
// Accumulators start empty: unflushed state is never persisted.
func LoadLearningMonitor(path string) (*LearningMonitor, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to open stats file")
	}
	defer file.Close()

	var stats statsFile
	if err := json.NewDecoder(file).Decode(&stats); err != nil {
		return nil, 0, errors.Wrap(err, "failed to decode stats")
	}

	lm := NewLearningMonitor()
	if stats.History != nil {
		lm.history = stats.History
	}
	return lm, stats.Iteration, nil
}

// LogErrors adds one iteration's losses and counts to the phase's window.
func LogErrors(monitor *LearningMonitor, losses map[string]*tensor.Tensor, counts map[string]float64, phase string) error {
	if len(losses) != len(counts) {
		return fmt.Errorf("mismatched losses and counts: %d vs %d", len(losses), len(counts))
	}

	values := make(map[string]float64, len(losses))
	for name, loss := range losses {
		if _, ok := counts[name]; !ok {
			return fmt.Errorf("count missing for task %q", name)
		}
		v, err := loss.Item()
		if err != nil {
			return fmt.Errorf("loss for task %q is not scalar: %v", name, err)
		}
		values[name] = v
	}

	monitor.AddToNum(values, phase)
	monitor.AddToDenom(counts, phase)
	return nil
}

// LogElapsedTime records one iteration's wall time under MetricIterTime.
func LogElapsedTime(monitor *LearningMonitor, seconds float64, phase string) {
	monitor.AddToNum(map[string]float64{MetricIterTime: seconds}, phase)
	monitor.AddToDenom(map[string]float64{MetricIterTime: 1}, phase)
}
