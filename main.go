package main

import (
	"errors"
	"flag"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/golang/glog"

	"github.com/jyane/jgb/gb"
	"github.com/jyane/jgb/statsview"
	"github.com/jyane/jgb/ui"
	"github.com/jyane/jgb/wavwriter"
)

var (
	path       = flag.String("path", "./rom/sample.gb", "path to Game Boy ROM file")
	width      = flag.Int("width", gb.Width*4, "window width")
	height     = flag.Int("height", gb.Height*4, "window height")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	debug      = flag.Bool("debug", false, "run as debug mode")
	save       = flag.String("save", "", "path to the save file, defaults to the ROM path with .sav")
	wavPath    = flag.String("wav", "", "record the audio output to a WAV file")
	headless   = flag.Bool("headless", false, "run without a window")
	frames     = flag.Int("frames", 600, "frames to run in headless mode")
	pngPath    = flag.String("png", "", "write the last frame to a PNG file in headless mode")
	dmg        = flag.Bool("dmg", false, "run color cartridges in monochrome mode")
	serial     = flag.Bool("serial", false, "print link port output to stdout")
	stats      = flag.String("statsview", "", "serve runtime charts on this address")
	sampleRate = flag.Int("samplerate", 44100, "audio sample rate")
)

// readFile reads file as bytes
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func savePath() string {
	if *save != "" {
		return *save
	}
	return strings.TrimSuffix(*path, filepath.Ext(*path)) + ".sav"
}

func loadSave(console gb.Console) {
	if !console.HasBattery() {
		return
	}
	b, err := readFile(savePath())
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		glog.Warningf("Failed to read %s: %v", savePath(), err)
		return
	}
	// The console keeps running with cleared RAM on failure.
	console.LoadSaveData(b)
}

func writeSave(console gb.Console) {
	if !console.HasBattery() {
		return
	}
	if err := ioutil.WriteFile(savePath(), console.SaveData(), 0644); err != nil {
		glog.Errorf("Failed to write %s: %v", savePath(), err)
		return
	}
	glog.Infof("Saved to %s", savePath())
}

// runHeadless runs the console for n frames, the audio is drained every frame.
func runHeadless(console gb.Console, n int, recorder *wavwriter.Writer) error {
	samples := make([]float32, 4096)
	for i := 0; i < n; i++ {
		if _, err := console.RunFrame(); err != nil {
			return err
		}
		for {
			read := console.Audio().ReadInto(samples)
			if read == 0 {
				break
			}
			if recorder != nil {
				if err := recorder.Write(samples[:read]); err != nil {
					return err
				}
			}
		}
	}
	if *pngPath == "" {
		return nil
	}
	frame, _ := console.Frame()
	f, err := os.Create(*pngPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, frame)
}

func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Fatal("Failed to create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Fatal("Failed to start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}
	if *stats != "" {
		statsview.Launch(*stats, os.Stderr)
	}
	buf, err := readFile(*path)
	if err != nil {
		glog.Fatalln("Failed to read: " + *path)
	}
	options := []gb.Option{gb.SampleRate(*sampleRate), gb.ForceDMG(*dmg)}
	if *serial {
		options = append(options, gb.SerialOutput(os.Stdout))
	}
	console, err := gb.NewConsole(buf, *debug, options...)
	if err != nil {
		glog.Fatalln("Failed to initiate Console: ", err)
	}
	loadSave(console)
	defer writeSave(console)

	var recorder *wavwriter.Writer
	if *wavPath != "" {
		recorder, err = wavwriter.New(*wavPath, *sampleRate)
		if err != nil {
			glog.Fatalln(err)
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				glog.Errorf("Failed to close %s: %v", *wavPath, err)
			}
		}()
	}

	if *headless {
		if err := runHeadless(console, *frames, recorder); err != nil && !errors.Is(err, gb.ErrQuit) {
			glog.Errorln("Headless run failed: ", err)
		}
		return
	}
	cfg := ui.Config{Width: *width, Height: *height, SampleRate: *sampleRate}
	if recorder != nil {
		cfg.Recorder = recorder
	}
	ui.Start(console, cfg)
}
