package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/joho/godotenv"

	"sama/audio"
	"sama/beep"
	"sama/doctor"
	"sama/log"
	"sama/shutdown"
	"sama/vapi"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			_ = godotenv.Load()
			runServe(os.Args[2:])
			return
		case "ingest":
			_ = godotenv.Load()
			runIngest(os.Args[2:])
			return
		}
	}
	run()
}

func run() {
	_ = godotenv.Load()

	assistantFlag := flag.String("assistant", "", "Assistant id to call (default: VAPI_ASSISTANT_ID)")
	serverFlag := flag.String("server", "", "Call server URL (default: VAPI_SERVER_URL or the hosted endpoint)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	demoFlag := flag.Bool("demo", false, "Run a scripted call without network or API key")
	autoEndFlag := flag.Bool("autoend", false, "Hang up automatically after 30s without speech")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("sama %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	var connector vapi.Connector
	var actx audio.Context
	assistant := *assistantFlag

	if *demoFlag {
		connector = demoConnector()
		actx = audio.NewToneContext(220)
		beep.Disable()
		if assistant == "" {
			assistant = "demo"
		}
	} else {
		connector, err = vapi.New(*serverFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			fmt.Println("Set VAPI_API_KEY in the environment or a .env file, or try -demo.")
			os.Exit(1)
		}
		if assistant == "" {
			assistant = os.Getenv("VAPI_ASSISTANT_ID")
		}
		if assistant == "" {
			fmt.Println("Error: no assistant id (use -assistant or set VAPI_ASSISTANT_ID)")
			os.Exit(1)
		}
		actx, err = audio.NewContext()
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			fmt.Printf("Error initializing audio context: %v\n", err)
			os.Exit(1)
		}
	}
	defer actx.Close()

	log.SessionStart(connector.Name(), assistant)

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		selectedDevice, err = audio.FindDevice(actx, *deviceFlag)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Printf("Warning: %v\n", err)
			fmt.Println("Falling back to default device")
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	}
	capture, err := actx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	go beep.Init()

	model := newTUIModel(connector, capture, vapi.CallConfig{AssistantID: assistant}, *autoEndFlag)
	p := NewTUIProgram(model)
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	shutdown.Handle(func() { p.Quit() })

	final, err := p.Run()
	if err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if m, ok := final.(tuiModel); ok {
		m.cleanup()
		log.SessionEnd(m.calls)
	}
}
