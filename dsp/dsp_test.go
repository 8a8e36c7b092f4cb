package dsp

import (
	"math"
	"testing"
)

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g (tol %g)", what, got, want, tol)
	}
}

func TestButterworthFirstOrder(t *testing.T) {
	// the first-order design has a closed form: with K = tan(pi*wn/2),
	// b = [K, K]/(K+1) and a = [1, (K-1)/(K+1)]
	wn := 0.2
	k := math.Tan(math.Pi * wn / 2)
	c, err := Butterworth(1, wn)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.B) != 2 || len(c.A) != 2 {
		t.Fatalf("coefficient lengths = %d/%d, want 2/2", len(c.B), len(c.A))
	}
	approx(t, c.B[0], k/(k+1), 1e-12, "b0")
	approx(t, c.B[1], k/(k+1), 1e-12, "b1")
	approx(t, c.A[0], 1, 1e-12, "a0")
	approx(t, c.A[1], (k-1)/(k+1), 1e-12, "a1")
}

func TestButterworthDCGainIsUnity(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4} {
		c, err := Butterworth(order, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		approx(t, Sum(c.B)/Sum(c.A), 1, 1e-9, "dc gain")
	}
}

func TestButterworthRejectsBadArgs(t *testing.T) {
	if _, err := Butterworth(0, 0.5); err == nil {
		t.Error("order 0 accepted")
	}
	if _, err := Butterworth(2, 1.5); err == nil {
		t.Error("cutoff above Nyquist accepted")
	}
	if _, err := FromTau(1, 3125, 0); err == nil {
		t.Error("zero tau accepted")
	}
}

func TestFiltFiltPassesConstants(t *testing.T) {
	c, err := Butterworth(4, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, 200)
	for i := range x {
		x[i] = 3.5
	}
	y, err := c.FiltFilt(x)
	if err != nil {
		t.Fatal(err)
	}
	if len(y) != len(x) {
		t.Fatalf("output length %d, want %d", len(y), len(x))
	}
	for i, v := range y {
		if math.Abs(v-3.5) > 1e-9 {
			t.Fatalf("sample %d = %g, want 3.5", i, v)
		}
	}
}

func TestFiltFiltAttenuatesHighFrequency(t *testing.T) {
	c, err := Butterworth(4, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	// DC offset plus a tone well above the corner
	x := make([]float64, 1000)
	for i := range x {
		x[i] = 1 + math.Sin(2*math.Pi*0.4*float64(i))
	}
	y, err := c.FiltFilt(x)
	if err != nil {
		t.Fatal(err)
	}
	var ripple float64
	for _, v := range y[100:900] {
		if r := math.Abs(v - 1); r > ripple {
			ripple = r
		}
	}
	if ripple > 1e-3 {
		t.Errorf("residual ripple %g, want < 1e-3", ripple)
	}
}

func TestFiltFiltRejectsShortInput(t *testing.T) {
	c, err := Butterworth(4, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.FiltFilt(make([]float64, 10)); err == nil {
		t.Error("short input accepted")
	}
}

func TestSettleDecimate(t *testing.T) {
	// 100 S/s, tau 0.1 s: settle 50 samples, keep every 10th
	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i)
	}
	got := SettleDecimate(x, 100, 0.1)
	want := []float64{50, 60, 70, 80, 90}
	if len(got) != len(want) {
		t.Fatalf("kept %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestSettleDecimateBeyondInput(t *testing.T) {
	if got := SettleDecimate(make([]float64, 10), 100, 0.1); len(got) != 0 {
		t.Errorf("kept %d samples from fully settled buffer, want 0", len(got))
	}
}

func TestStats(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	approx(t, Sum(x), 10, 0, "sum")
	approx(t, Mean(x), 2.5, 0, "mean")
	approx(t, Std(x), math.Sqrt(1.25), 1e-12, "std")
	approx(t, Min(x), 1, 0, "min")
	approx(t, Max(x), 4, 0, "max")
	approx(t, Length(x), 4, 0, "len")
	if !math.IsNaN(Mean(nil)) || !math.IsNaN(Std(nil)) {
		t.Error("empty input should yield NaN mean and std")
	}
}

type fakeSource struct {
	name string
	data []float64
}

func (f fakeSource) Name() string        { return f.name }
func (f fakeSource) GetArray() []float64 { return f.data }

func TestBasicStatisticsDevice(t *testing.T) {
	src := fakeSource{name: "dmm_burst_volt", data: []float64{1, 2, 3, 4}}
	dev, err := BasicStatistics("burst_stats", src)
	if err != nil {
		t.Fatal(err)
	}
	r, err := dev.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r["dmm_burst_volt_mean"].Value != 2.5 {
		t.Errorf("mean = %v, want 2.5", r["dmm_burst_volt_mean"].Value)
	}
	if r["dmm_burst_volt_len"].Value != 4.0 {
		t.Errorf("len = %v, want 4", r["dmm_burst_volt_len"].Value)
	}
}

func TestFilterStatisticsDevice(t *testing.T) {
	fs := 1000.0
	tau := 0.01
	bank, err := DefaultFilterBank(fs, tau)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 2 + 0.5*math.Sin(2*math.Pi*300*float64(i)/fs)
	}
	src := fakeSource{name: "dmm_burst_volt", data: data}
	dev, err := FilterStatistics("filter_stats", src, bank, fs, tau)
	if err != nil {
		t.Fatal(err)
	}
	r, err := dev.Read()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"dmm_burst_volt_filter_6dB_mean",
		"dmm_burst_volt_filter_6dB_std",
		"dmm_burst_volt_filter_24dB_mean",
		"dmm_burst_volt_filter_24dB_std",
	} {
		if _, ok := r[name]; !ok {
			t.Fatalf("missing reading %q in %v", name, r)
		}
	}
	mean := r["dmm_burst_volt_filter_24dB_mean"].Value.(float64)
	approx(t, mean, 2, 0.01, "filtered mean")
	std := r["dmm_burst_volt_filter_24dB_std"].Value.(float64)
	if std > 0.05 {
		t.Errorf("filtered std = %g, want tone suppressed below 0.05", std)
	}
}
