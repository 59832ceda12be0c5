// Command rbharness drives the echo-plugin reference implementation
// in-process, without cgo, for fast local iteration: load a YAML dev
// config, init a handle, send one request, print the response, shut
// down cleanly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jrobhoward/rustbridge/examples/echo-plugin/echoplugin"
	"github.com/jrobhoward/rustbridge/handle"
	"github.com/jrobhoward/rustbridge/logbridge"
)

// devConfig is the YAML shape a developer hand-edits; it is translated
// into PluginConfig's JSON wire shape before reaching handle.Init.
type devConfig struct {
	WorkerThreads     *int           `yaml:"worker_threads"`
	LogLevel          string         `yaml:"log_level"`
	MaxConcurrentOps  int            `yaml:"max_concurrent_ops"`
	ShutdownTimeoutMs int            `yaml:"shutdown_timeout_ms"`
	Data              map[string]any `yaml:"data"`
	InitParams        map[string]any `yaml:"init_params"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML dev config (optional)")
	typeTag := flag.String("type", "echo", "type tag to send")
	requestBody := flag.String("payload", `{"message":"hi"}`, "JSON request payload")
	flag.Parse()

	if err := run(*configPath, *typeTag, *requestBody); err != nil {
		fmt.Fprintln(os.Stderr, "rbharness:", err)
		os.Exit(1)
	}
}

func run(configPath, typeTag, requestBody string) error {
	rawConfig, err := buildConfigJSON(configPath)
	if err != nil {
		return err
	}

	var logLines []string
	logCallback := func(level logbridge.Level, target, message string) {
		logLines = append(logLines, fmt.Sprintf("[%s] %s: %s", level, target, message))
	}

	hd, herr := handle.Init(echoplugin.New(), "echo-plugin", rawConfig, 1, logCallback, nil)
	if herr != nil {
		return fmt.Errorf("init failed: %s", herr.Error())
	}
	defer func() {
		for _, line := range logLines {
			fmt.Println(line)
		}
	}()

	out, cerr := hd.Call(typeTag, []byte(requestBody))
	if cerr != nil {
		fmt.Printf("error_code=%d message=%s\n", cerr.Code, cerr.Message)
	} else {
		fmt.Printf("response: %s\n", string(out))
	}

	if serr := hd.Shutdown(); serr != nil {
		return fmt.Errorf("shutdown failed: %s", serr.Error())
	}
	return nil
}

func buildConfigJSON(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var dc devConfig
	if err := yaml.Unmarshal(raw, &dc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	wire := map[string]any{
		"log_level":           dc.LogLevel,
		"max_concurrent_ops":  dc.MaxConcurrentOps,
		"shutdown_timeout_ms": dc.ShutdownTimeoutMs,
	}
	if dc.WorkerThreads != nil {
		wire["worker_threads"] = *dc.WorkerThreads
	}
	if dc.Data != nil {
		wire["data"] = dc.Data
	}
	if dc.InitParams != nil {
		wire["init_params"] = dc.InitParams
	}
	return json.Marshal(wire)
}
