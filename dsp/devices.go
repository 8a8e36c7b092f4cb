package dsp

import (
	"fmt"
	"sort"

	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/signal"
)

// ArraySource is anything holding a captured sample buffer, typically a
// file-backed array signal after a trigger.
type ArraySource interface {
	Name() string
	GetArray() []float64
}

// Acquisition defaults for the burst capture chain: the digitizer runs at
// 400 kS/s, decimated by 64 then 16 on-instrument, with 8 averaged repeats
// folded back in.
const (
	DefaultSampleRate = 400e3 / 64 / 16 * 8
	DefaultTau        = 10e-3
)

// BasicStatistics builds a device whose components reduce src's buffer with
// the canonical statistic set.  Component readings are named
// <source>_<stat>.
func BasicStatistics(name string, src ArraySource) (*device.Device, error) {
	d := device.New(name)
	for _, st := range Stats() {
		st := st
		sig := signal.NewComposite(src.Name()+"_"+st.Name, func() (interface{}, error) {
			return st.Func(src.GetArray()), nil
		})
		if err := d.Add(st.Name, sig, device.Normal); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FilterBank is the set of lowpass responses applied by FilterStatistics,
// keyed by the roll-off suffix used in component names.
type FilterBank map[string]Coefficients

// DefaultFilterBank designs the standard pair of responses at the given
// rate and time constant: a first-order (6 dB/octave) and a fourth-order
// (24 dB/octave) Butterworth.
func DefaultFilterBank(sampleRate, tau float64) (FilterBank, error) {
	bank := FilterBank{}
	for suffix, order := range map[string]int{"filter_6dB": 1, "filter_24dB": 4} {
		c, err := FromTau(order, sampleRate, tau)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", suffix, err)
		}
		bank[suffix] = c
	}
	return bank, nil
}

// FilterStatistics builds a device that lowpasses src's buffer with each
// response in bank, settles and decimates at tau, and exposes the mean and
// standard deviation of what remains.  Component readings are named
// <source>_<filter>_<stat>.
func FilterStatistics(name string, src ArraySource, bank FilterBank, sampleRate, tau float64) (*device.Device, error) {
	d := device.New(name)
	reduced := []Stat{{"mean", Mean}, {"std", Std}}
	// stable component order regardless of map iteration
	suffixes := make([]string, 0, len(bank))
	for suffix := range bank {
		suffixes = append(suffixes, suffix)
	}
	sort.Strings(suffixes)
	for _, suffix := range suffixes {
		coeffs := bank[suffix]
		for _, st := range reduced {
			suffix, coeffs, st := suffix, coeffs, st
			compName := suffix + "_" + st.Name
			sig := signal.NewComposite(src.Name()+"_"+compName, func() (interface{}, error) {
				filtered, err := coeffs.FiltFilt(src.GetArray())
				if err != nil {
					return nil, err
				}
				return st.Func(SettleDecimate(filtered, sampleRate, tau)), nil
			})
			if err := d.Add(compName, sig, device.Normal); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}
