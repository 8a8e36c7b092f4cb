package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ee-meas/instrgraph/agilent"
	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/devhttp"
	"github.com/ee-meas/instrgraph/dsp"
	"github.com/ee-meas/instrgraph/keysight"
	"github.com/ee-meas/instrgraph/metrics"
	"github.com/ee-meas/instrgraph/publish"
	"github.com/ee-meas/instrgraph/rigol"
	"github.com/ee-meas/instrgraph/signal"
	"github.com/ee-meas/instrgraph/sim"
	"github.com/ee-meas/instrgraph/srs"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Node holds the setup parameters for one instrument.
type Node struct {
	// Name is the device name, used as the prefix for component names
	// and as the key under which readings are published
	Name string `yaml:"Name" koanf:"Name"`

	// Type selects the driver, e.g. "sr810", "dmm", "scope",
	// "function-generator", "dp832"
	Type string `yaml:"Type" koanf:"Type"`

	// Addr holds the network or filesystem address of the instrument,
	// e.g. 192.168.100.123:5025 for LXI, or /dev/ttyUSB0 for a
	// serial cable or Prologix adapter
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Endpoint is the stem the routes from this device are served under,
	// ex. Endpoint="/lab/lia" produces routes of /lab/lia/read, etc.
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Serial selects a serial/RS232 connection instead of TCP
	Serial bool `yaml:"Serial" koanf:"Serial"`

	// Gpib is the bus address when Addr points at a Prologix adapter;
	// zero means no GPIB and Addr is used directly
	Gpib int `yaml:"Gpib" koanf:"Gpib"`

	// Mock replaces the connection with a simulated instrument that
	// answers every command in the node's dictionary
	Mock bool `yaml:"Mock" koanf:"Mock"`

	// Stats names an array component, e.g. "burst_volt", to derive a
	// filtered-statistics device from, mounted at Endpoint + "-stats"
	Stats string `yaml:"Stats" koanf:"Stats"`
}

// PublishSetup configures the optional Redis fan-out of readings.
type PublishSetup struct {
	// Addr is the redis server, e.g. localhost:6379.  Empty disables
	// publishing.
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Prefix namespaces the channels and lists, default "instrgraph"
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// History is the number of readings retained per device
	History int64 `yaml:"History" koanf:"History"`

	// IntervalSec is the polling period in seconds
	IntervalSec float64 `yaml:"IntervalSec" koanf:"IntervalSec"`
}

// Config holds the initialization parameters for the server.  It is
// populated from the yaml config file.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// DataDir is the root directory array captures are saved under
	DataDir string `yaml:"DataDir" koanf:"DataDir"`

	// AuthSecret, when nonempty, requires a bearer token on every route
	AuthSecret string `yaml:"AuthSecret" koanf:"AuthSecret"`

	Publish PublishSetup `yaml:"Publish" koanf:"Publish"`

	// Nodes is the list of instruments to set up
	Nodes []Node `yaml:"Nodes" koanf:"Nodes"`
}

func dictFor(typ string) (*command.Dict, error) {
	switch typ {
	case "sr810", "lockin", "srs":
		return srs.SR810Commands(), nil
	case "dmm", "keysight-dmm", "34465a":
		return keysight.DMMCommands(), nil
	case "scope", "keysight-scope":
		return keysight.ScopeCommands(), nil
	case "function-generator", "fgen", "agilent-function-generator":
		return agilent.FuncGenCommands(), nil
	case "dp832", "psu", "rigol":
		return rigol.DP832Commands(), nil
	}
	return nil, errors.Errorf("type %s not understood", typ)
}

func layerFor(node Node, typ string) (signal.ControlLayer, error) {
	if node.Mock {
		dict, err := dictFor(typ)
		if err != nil {
			return nil, err
		}
		return sim.New(node.Name, dict), nil
	}
	switch typ {
	case "sr810", "lockin", "srs":
		if node.Gpib != 0 {
			return srs.NewSR810GPIB(node.Name, node.Addr, node.Gpib), nil
		}
		return srs.NewSR810(node.Name, node.Addr), nil
	case "dmm", "keysight-dmm", "34465a":
		return keysight.NewDMM(node.Name, node.Addr), nil
	case "scope", "keysight-scope":
		return keysight.NewScope(node.Name, node.Addr), nil
	case "function-generator", "fgen", "agilent-function-generator":
		if node.Serial {
			return agilent.NewFunctionGeneratorSerial(node.Name, node.Addr), nil
		}
		return agilent.NewFunctionGenerator(node.Name, node.Addr), nil
	case "dp832", "psu", "rigol":
		return rigol.NewDP832(node.Name, node.Addr), nil
	}
	return nil, errors.Errorf("type %s not understood", typ)
}

func deviceFor(cl signal.ControlLayer, typ, dataDir string) (*device.Device, error) {
	switch typ {
	case "sr810", "lockin", "srs":
		return srs.SR810Device(cl)
	case "dmm", "keysight-dmm", "34465a":
		return keysight.DMMDevice(cl, dataDir)
	case "scope", "keysight-scope":
		return keysight.ScopeDevice(cl, dataDir)
	case "function-generator", "fgen", "agilent-function-generator":
		return agilent.FuncGenDevice(cl)
	case "dp832", "psu", "rigol":
		return rigol.DP832Device(cl)
	}
	return nil, errors.Errorf("type %s not understood", typ)
}

// BuildDevices constructs a device and control layer per configured node.
func BuildDevices(c Config) (map[string]*device.Device, map[string]signal.ControlLayer, error) {
	devs := map[string]*device.Device{}
	layers := map[string]signal.ControlLayer{}
	for _, node := range c.Nodes {
		typ := strings.ToLower(node.Type)
		cl, err := layerFor(node, typ)
		if err != nil {
			return nil, nil, err
		}
		dev, err := deviceFor(cl, typ, c.DataDir)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "node %s", node.Name)
		}
		devs[node.Endpoint] = dev
		layers[node.Endpoint] = cl
		if node.Stats != "" {
			stats, err := statsFor(dev, node.Stats)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "node %s", node.Name)
			}
			devs[strings.TrimSuffix(node.Endpoint, "/")+"-stats"] = stats
		}
	}
	return devs, layers, nil
}

// statsFor derives a filtered-statistics device from one of dev's array
// components.
func statsFor(dev *device.Device, component string) (*device.Device, error) {
	comp, ok := dev.Component(component)
	if !ok {
		return nil, errors.Errorf("no component named %s", component)
	}
	src, ok := comp.Signal.(dsp.ArraySource)
	if !ok {
		return nil, errors.Errorf("component %s does not buffer an array", component)
	}
	bank, err := dsp.DefaultFilterBank(dsp.DefaultSampleRate, dsp.DefaultTau)
	if err != nil {
		return nil, err
	}
	return dsp.FilterStatistics(dev.Name()+"_filtstat", src, bank, dsp.DefaultSampleRate, dsp.DefaultTau)
}

// BuildMux assembles the root handler from the configured nodes.
func BuildMux(c Config, log *logrus.Logger) (chi.Router, error) {
	devs, layers, err := BuildDevices(c)
	if err != nil {
		return nil, err
	}
	col := metrics.New()
	m := devhttp.Multiplexer{}
	for stem, dev := range devs {
		ctl := devhttp.NewController(dev)
		ctl.Observe = col.ObserveOp(dev.Name())
		if rw, ok := layers[stem].(devhttp.RawCommunicator); ok {
			devhttp.InjectRawComm(ctl, rw)
		}
		m.Add(stem, ctl)
		log.WithFields(logrus.Fields{
			"device":     dev.Name(),
			"endpoint":   stem,
			"components": len(dev.Names()),
		}).Info("device mounted")
	}

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Use(col.Instrument)
	root.Mount("/metrics", col.Handler())

	inner := http.Handler(m.BuildMux())
	if c.AuthSecret != "" {
		inner = devhttp.BearerAuth([]byte(c.AuthSecret))(inner)
	}
	root.Mount("/", inner)

	if c.Publish.Addr != "" {
		pub := publish.New(c.Publish.Addr, c.Publish.Prefix, c.Publish.History)
		if err := pub.Ping(context.Background()); err != nil {
			return nil, errors.Wrap(err, "redis unreachable")
		}
		interval := time.Duration(c.Publish.IntervalSec * float64(time.Second))
		if interval <= 0 {
			interval = time.Second
		}
		for _, dev := range devs {
			go publishLoop(pub, dev, interval, log)
		}
	}
	return root, nil
}

// publishLoop polls one device and fans its readings out over redis.
func publishLoop(pub *publish.Publisher, dev *device.Device, interval time.Duration, log *logrus.Logger) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		readings, err := dev.Read()
		if err != nil {
			log.WithError(err).WithField("device", dev.Name()).Warn("read failed")
			cancel()
			continue
		}
		if err := pub.PublishReadings(ctx, dev.Name(), readings); err != nil {
			log.WithError(err).WithField("device", dev.Name()).Warn("publish failed")
		}
		if docs := dev.CollectAssetDocs(); len(docs) > 0 {
			if err := pub.PublishAssetDocs(ctx, dev.Name(), docs); err != nil {
				log.WithError(err).WithField("device", dev.Name()).Warn("asset publish failed")
			}
		}
		cancel()
	}
}
