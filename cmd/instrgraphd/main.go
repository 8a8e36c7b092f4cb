package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "instrgraphd.yml"
	k              = koanf.New(".")

	log = logrus.New()
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:    ":8000",
		DataDir: "data",
		Publish: PublishSetup{Prefix: "instrgraph", History: 1000, IntervalSec: 1},
		Nodes:   []Node{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `instrgraphd communicates with bench instruments and exposes their signal
graphs over an HTTP interface.  This enables a server-client architecture,
and the clients can leverage the excellent HTTP libraries for any
programming language.

Usage:
	instrgraphd <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `instrgraphd is amenable to configuration via its .yaml file.  For a primer
on YAML, see https://yaml.org/start.html

Without a configuration, the server will close immediately and display an
error that there are no nodes.

No two nodes can have the same endpoint.

Endpoints may look like any variation between "lab/lia" or "/lab/lia/",
the leading and trailing slashes are added by the server if missing.

Instruments and matching "type" fields, case insensitive:
- Agilent / Keysight:
	> 33220A function generator "fgen", "function-generator"
	> 34465A multimeter "dmm", "34465a"
	> InfiniiVision oscilloscope "scope", "keysight-scope"
- Rigol:
	> DP832 power supply "dp832", "psu"
- Stanford Research Systems:
	> SR810 lock-in amplifier "sr810", "lockin"

Setting Mock: true on a node replaces the connection with a simulated
instrument that answers every command in the node's dictionary, which is
useful for development away from the bench.

Array captures (multimeter bursts, scope screen grabs) are saved under
DataDir and referenced from readings by resource and datum documents,
served at <endpoint>/asset-docs.

Setting Publish.Addr fans every node's readings out over redis pub/sub
in addition to the HTTP interface.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("instrgraphd version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	if len(c.Nodes) == 0 {
		log.Fatal("no nodes configured, run mkconf and edit the nodes list")
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		log.Fatal(err)
	}
	mux, err := BuildMux(c, log)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
