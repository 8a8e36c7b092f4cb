package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/theckman/yacspin"

	"github.com/ee-meas/instrgraph/devhttp"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func usage() {
	str := `instrgraph is the command line client for instrgraphd.

Usage:
	instrgraph [-server URL] [-token TOK] <command> [args]

Commands:
	endpoints                     list the devices the server hosts
	components <stem>             list a device's signals
	describe <stem>               per-signal metadata
	read <stem>                   read every normal and hinted signal
	read-config <stem>            read the configuration signals
	get <stem> <signal>           read one signal
	set <stem> <signal> <value>   set one signal, bare value fires a command
	stage <stem>                  prepare array captures
	trigger <stem>                acquire, spins until the device settles
	unstage <stem>                release array captures
	asset-docs <stem>             drain the resource/datum documents
	token -secret S [-subject N]  mint a bearer token
	version`
	fmt.Println(str)
}

type client struct {
	server string
	token  string
}

func (c client) do(method, route string, body io.Reader) ([]byte, error) {
	url := strings.TrimSuffix(c.server, "/") + route
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func stemRoute(stem, tail string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	return strings.TrimSuffix(stem, "/") + tail
}

func printKV(name string, value interface{}) {
	fmt.Printf("%s  %s\n", nameStyle.Render(name), valueStyle.Render(fmt.Sprint(value)))
}

func printJSONMap(data []byte, render func(name string, body json.RawMessage)) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		render(name, m[name])
	}
	return nil
}

func endpoints(c client) error {
	data, err := c.do(http.MethodGet, "/endpoints", nil)
	if err != nil {
		return err
	}
	return printJSONMap(data, func(stem string, body json.RawMessage) {
		routes := []string{}
		json.Unmarshal(body, &routes)
		fmt.Println(nameStyle.Render(stem))
		for _, r := range routes {
			fmt.Println("  " + dimStyle.Render(r))
		}
	})
}

func components(c client, stem string) error {
	data, err := c.do(http.MethodGet, stemRoute(stem, "/components"), nil)
	if err != nil {
		return err
	}
	out := struct {
		Device     string `json:"device"`
		Components []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"components"`
		Skipped []string `json:"skipped"`
	}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	fmt.Println(nameStyle.Render(out.Device))
	for _, comp := range out.Components {
		fmt.Printf("  %s  %s\n", nameStyle.Render(comp.Name), valueStyle.Render(comp.Kind))
	}
	for _, name := range out.Skipped {
		fmt.Printf("  %s  %s\n", dimStyle.Render(name), dimStyle.Render("skipped"))
	}
	return nil
}

func describe(c client, stem, tail string) error {
	data, err := c.do(http.MethodGet, stemRoute(stem, tail), nil)
	if err != nil {
		return err
	}
	return printJSONMap(data, func(name string, body json.RawMessage) {
		d := struct {
			Source string `json:"source"`
			DType  string `json:"dtype"`
		}{}
		json.Unmarshal(body, &d)
		fmt.Printf("%s  %s  %s\n", nameStyle.Render(name),
			valueStyle.Render(d.DType), dimStyle.Render(d.Source))
	})
}

func read(c client, stem, tail string) error {
	data, err := c.do(http.MethodGet, stemRoute(stem, tail), nil)
	if err != nil {
		return err
	}
	return printJSONMap(data, func(name string, body json.RawMessage) {
		r := struct {
			Value     interface{} `json:"value"`
			Timestamp float64     `json:"timestamp"`
		}{}
		json.Unmarshal(body, &r)
		fmt.Printf("%s  %s  %s\n", nameStyle.Render(name),
			valueStyle.Render(fmt.Sprint(r.Value)),
			dimStyle.Render(time.Unix(0, int64(r.Timestamp*1e9)).Format(time.RFC3339)))
	})
}

func getSignal(c client, stem, name string) error {
	data, err := c.do(http.MethodGet, stemRoute(stem, "/signal/"+name), nil)
	if err != nil {
		return err
	}
	return printJSONMap(data, func(name string, body json.RawMessage) {
		r := struct {
			Value interface{} `json:"value"`
		}{}
		json.Unmarshal(body, &r)
		printKV(name, r.Value)
	})
}

// setSignal parses raw as JSON when it looks like a number, bool, or
// quoted string; otherwise it is sent as a bare string.  No value at
// all fires a parameterless command like trig.
func setSignal(c client, stem, name, raw string, bare bool) error {
	var value interface{}
	if !bare {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			value = f
		} else if b, err := strconv.ParseBool(raw); err == nil {
			value = b
		} else {
			value = raw
		}
	}
	body, err := json.Marshal(map[string]interface{}{"value": value})
	if err != nil {
		return err
	}
	_, err = c.do(http.MethodPost, stemRoute(stem, "/signal/"+name), bytes.NewReader(body))
	return err
}

func bareCommand(c client, stem, tail string) error {
	_, err := c.do(http.MethodPost, stemRoute(stem, tail), nil)
	return err
}

func trigger(c client, stem string) error {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " acquiring",
		SuffixAutoColon: true,
		Message:         stem,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		return err
	}
	spinner.Start()
	_, err = c.do(http.MethodPost, stemRoute(stem, "/trigger"), nil)
	if err != nil {
		spinner.StopFail()
		return err
	}
	spinner.Stop()
	return nil
}

func assetDocs(c client, stem string) error {
	data, err := c.do(http.MethodGet, stemRoute(stem, "/asset-docs"), nil)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}

func mintToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secret := fs.String("secret", "", "signing secret, must match the server's AuthSecret")
	subject := fs.String("subject", "instrgraph", "token subject")
	fs.Parse(args)
	if *secret == "" {
		return errors.New("token requires -secret")
	}
	tok, err := devhttp.IssueToken([]byte(*secret), *subject)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func main() {
	server := flag.String("server", "http://localhost:8000", "instrgraphd address")
	token := flag.String("token", "", "bearer token, if the server requires one")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return
	}
	c := client{server: *server, token: *token}
	need := func(n int, what string) {
		if len(args) < n+1 {
			fmt.Println(errStyle.Render(args[0] + " requires " + what))
			os.Exit(2)
		}
	}
	var err error
	switch args[0] {
	case "endpoints":
		err = endpoints(c)
	case "components", "scan":
		need(1, "a stem")
		err = components(c, args[1])
	case "describe":
		need(1, "a stem")
		err = describe(c, args[1], "/describe")
	case "describe-config":
		need(1, "a stem")
		err = describe(c, args[1], "/describe-configuration")
	case "read":
		need(1, "a stem")
		err = read(c, args[1], "/read")
	case "read-config":
		need(1, "a stem")
		err = read(c, args[1], "/read-configuration")
	case "get":
		need(2, "a stem and signal")
		err = getSignal(c, args[1], args[2])
	case "set":
		need(2, "a stem and signal")
		if len(args) > 3 {
			err = setSignal(c, args[1], args[2], args[3], false)
		} else {
			err = setSignal(c, args[1], args[2], "", true)
		}
	case "stage":
		need(1, "a stem")
		err = bareCommand(c, args[1], "/stage")
	case "trigger":
		need(1, "a stem")
		err = trigger(c, args[1])
	case "unstage":
		need(1, "a stem")
		err = bareCommand(c, args[1], "/unstage")
	case "asset-docs":
		need(1, "a stem")
		err = assetDocs(c, args[1])
	case "token":
		err = mintToken(args[1:])
	case "version":
		fmt.Printf("instrgraph version %v\n", Version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Println(errStyle.Render(err.Error()))
		os.Exit(1)
	}
}
