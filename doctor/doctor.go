// Package doctor runs system checks for sama: configuration, audio
// capture, clipboard, log directory and the optional Ollama backend.
package doctor

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"sama/audio"
	"sama/log"
	"sama/shutdown"
)

// Run executes the diagnostic checks and returns an exit code (0=all
// pass, 1=any fail). The Ollama check warns instead of failing; the
// voice client works without a local backend.
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("sama doctor - system diagnostics")
	fmt.Println("================================")

	allPass := true

	if !checkConfig() {
		allPass = false
	}
	if allPass && !checkAudio() {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}
	if allPass && !checkLogDir() {
		allPass = false
	}
	checkOllama()

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkConfig() bool {
	fmt.Println()
	fmt.Println("[1/5] Configuration")

	ok := true
	if os.Getenv("VAPI_API_KEY") == "" {
		fmt.Println("  FAIL: VAPI_API_KEY not set (get one at https://dashboard.vapi.ai)")
		ok = false
	} else {
		fmt.Println("  PASS: VAPI_API_KEY set")
	}
	if os.Getenv("VAPI_ASSISTANT_ID") == "" {
		fmt.Println("  WARN: VAPI_ASSISTANT_ID not set (pass -assistant instead)")
	} else {
		fmt.Println("  PASS: VAPI_ASSISTANT_ID set")
	}
	return ok
}

func checkAudio() bool {
	fmt.Println()
	fmt.Println("[2/5] Microphone capture")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			tag := ""
			if audio.IsBluetooth(d.Name) {
				tag = " (Bluetooth - lower call quality)"
			}
			fmt.Printf("  %d. %s%s\n", i+1, d.Name, tag)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Println("  FAIL: invalid choice")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	audioData, err := recordAudio(ctx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(audioData) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	seconds := float64(len(audioData)/2) / float64(audio.SampleRate)
	level := rmsLevel(audioData)
	fmt.Printf("  Captured %.1fs of audio (level %.3f)\n", seconds, level)
	if level < 0.01 {
		fmt.Println("  FAIL: microphone is silent - check input volume or pick another device")
		return false
	}
	fmt.Println("  PASS: microphone delivers audio")
	return true
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	config := audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	}

	captureDevice, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if !stopped {
			pcmBuf = append(pcmBuf, data...)
		}
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Println(" done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func rmsLevel(data []byte) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[3/5] Clipboard")

	testStr := fmt.Sprintf("sama-doctor-%d", time.Now().UnixNano())

	type cbResult struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan cbResult, 1)
	go func() {
		if err := clipboard.WriteAll(testStr); err != nil {
			ch <- cbResult{err: err, phase: "write"}
			return
		}
		got, err := clipboard.ReadAll()
		if err != nil {
			ch <- cbResult{err: err, phase: "read"}
			return
		}
		ch <- cbResult{readback: got}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: clipboard %s failed: %v\n", res.phase, res.err)
			return false
		}
		if res.readback != testStr {
			fmt.Printf("  FAIL: clipboard mismatch: wrote %q, got %q\n", testStr, res.readback)
			return false
		}
		fmt.Println("  PASS: clipboard write/read verified")
		return true
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: clipboard timed out (clipboard tool hung - compositor not accessible?)")
		return false
	}
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[4/5] Log directory")

	dir, err := log.ResolveDir("")
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve log directory: %v\n", err)
		return false
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		fmt.Printf("  FAIL: %s not writable: %v\n", dir, err)
		return false
	}
	os.Remove(probe)
	fmt.Printf("  PASS: %s is writable\n", dir)
	return true
}

func checkOllama() {
	fmt.Println()
	fmt.Println("[5/5] Ollama backend (optional, used by 'sama serve')")

	base := os.Getenv("OLLAMA_BASE_URL")
	if base == "" {
		base = "http://localhost:11434"
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(base, "/") + "/api/tags")
	if err != nil {
		fmt.Printf("  WARN: not reachable at %s (start it with: ollama serve)\n", base)
		return
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&tags) != nil {
		fmt.Printf("  WARN: unexpected answer from %s\n", base)
		return
	}
	if len(tags.Models) == 0 {
		fmt.Println("  WARN: reachable but no models pulled (try: ollama pull mistral:7b)")
		return
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	fmt.Printf("  PASS: reachable, %d model(s): %s\n", len(names), strings.Join(names, ", "))
}

func resetTerminal() {
	if runtime.GOOS != "windows" {
		exec.Command("stty", "sane").Run()
	}
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}
