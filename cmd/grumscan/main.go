// Command grumscan runs the drum trigger over a recorded guitar take and
// reports the hits, optionally playing them on a MIDI port.
//
//	grumscan [flags] take.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/grumpedal/grum/pkg/config"
	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/midi"
	"github.com/grumpedal/grum/pkg/trigger"
)

// portScanTimeout bounds driver port enumeration, which can hang.
const portScanTimeout = 3 * time.Second

type options struct {
	configPath string
	logPath    string
	useMIDI    bool
	port       string
	kit        string
	listPorts  bool
	realtime   bool
	progress   bool
	verbose    bool
	profile    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	flag.StringVar(&opts.logPath, "log", "", "append the log to this file instead of stderr")
	flag.BoolVar(&opts.useMIDI, "midi", false, "send hits to a MIDI output port")
	flag.StringVar(&opts.port, "port", "", "MIDI output port name (substring match)")
	flag.StringVar(&opts.kit, "kit", "", "drum kit note map: "+fmt.Sprint(midi.KitNames()))
	flag.BoolVar(&opts.listPorts, "list-ports", false, "list MIDI output ports and exit")
	flag.BoolVar(&opts.realtime, "realtime", false, "pace blocks at the audio rate")
	flag.BoolVar(&opts.progress, "progress", false, "show a progress bar instead of one line per hit")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.BoolVar(&opts.profile, "profile", false, "print the block timing report")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] take.wav\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(opts, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "grumscan: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, args []string) error {
	if opts.listPorts {
		return listPorts()
	}
	if len(args) != 1 {
		flag.Usage()
		return errors.New("expected one input file")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.kit != "" {
		cfg.MIDI.Kit = opts.kit
	}
	if opts.port != "" {
		cfg.MIDI.Port = opts.port
	}

	logger, closeLog, err := openLog(opts.logPath)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.SetLevel(cfg.LogLevel)
	if opts.verbose {
		logger.SetLevel(debug.LogLevelDebug)
	}

	path := args[0]
	rec, err := loadWAV(path, int(cfg.Trigger.SampleRate))
	if err != nil {
		return err
	}
	logger.Info("%s: %d channel(s) at %d Hz, %v",
		filepath.Base(path), rec.Channels, rec.SourceRate, samplesDuration(len(rec.Samples), rec.SampleRate))

	analyzer := debug.NewInputAnalyzer()
	analyzer.Add(rec.Samples)
	analyzer.LogStats(logger, filepath.Base(path))

	recorder := &trigger.Recorder{}
	sinks := trigger.MultiSink{recorder}
	if !opts.progress {
		sinks = append(sinks, trigger.NewLogSink(logger))
	}

	var sender *midi.Sender
	if opts.useMIDI {
		sender, err = openSender(cfg, logger)
		if err != nil {
			return err
		}
		defer gomidi.CloseDriver()
		defer func() {
			if err := sender.Close(); err != nil {
				logger.Warn("closing %s: %v", sender.Port(), err)
			}
		}()
		sinks = append(sinks, sender)
	}

	engine, err := trigger.NewEngine(cfg.Trigger, sinks)
	if err != nil {
		return err
	}
	engine.SetLogger(logger.With("engine"))
	if sender != nil {
		engine.SetGainControl(sender)
	} else {
		engine.SetGainControl(recorder)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanErr := scan(ctx, engine, sender, blocks(rec.Samples, cfg.Trigger.BlockSize), opts)

	printSummary(os.Stdout, engine.Stats(), recorder)
	if opts.profile {
		fmt.Println()
		fmt.Print(engine.Profiler().BlockReport())
	}
	if errors.Is(scanErr, context.Canceled) {
		logger.Warn("interrupted")
		return nil
	}
	return scanErr
}

func openLog(path string) (*debug.Logger, func(), error) {
	if path == "" {
		return debug.New(os.Stderr, "grum", debug.DefaultFlags), func() {}, nil
	}
	logger, closer, err := debug.NewFileLogger(path, "grum", debug.DefaultFlags)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { closer.Close() }, nil
}

func openSender(cfg config.Config, logger *debug.Logger) (*midi.Sender, error) {
	mc := cfg.MIDI
	kit, err := midi.KitByName(mc.Kit)
	if err != nil {
		return nil, err
	}
	sender, err := midi.Open(mc.Port, kit, mc.Channel)
	if err != nil {
		return nil, err
	}
	sender.SetLogger(logger.With("midi"))
	sender.SetNoteLength(mc.NoteLength)
	if err := applyVoiceGains(sender, cfg.Trigger.Mapper.Voices); err != nil {
		sender.Close()
		return nil, err
	}
	logger.Info("sending %s kit on %s, channel %d", kit.Name, sender.Port(), mc.Channel+1)
	return sender, nil
}

// applyVoiceGains scales each voice's note velocity by its base gain.
func applyVoiceGains(sender *midi.Sender, voices [trigger.NumVoices]trigger.VoiceParams) error {
	for v, p := range voices {
		if err := sender.SetVoiceGain(trigger.Voice(v), p.BaseGain); err != nil {
			return err
		}
	}
	return nil
}

// scan feeds every block to the engine. In real time mode blocks are paced
// by a ticker at the block rate so a connected drum machine hears the hits
// as they would be played.
func scan(ctx context.Context, engine *trigger.Engine, sender *midi.Sender, input [][]float32, opts options) error {
	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if opts.progress {
		p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar = p.AddBar(int64(len(input)),
			mpb.PrependDecorators(
				decor.Name("Scanning: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
		)
		defer p.Wait()
	}

	var tick <-chan time.Time
	if opts.realtime {
		ticker := time.NewTicker(engine.Profiler().Budget())
		defer ticker.Stop()
		tick = ticker.C
	}

	for _, block := range input {
		if tick != nil {
			select {
			case <-ctx.Done():
				abort(bar)
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			abort(bar)
			return err
		}

		// Hits of this block queue their releases from its start time.
		if sender != nil {
			if err := sender.Advance(engine.Elapsed()); err != nil {
				abort(bar)
				return err
			}
		}
		engine.Process(block)
		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

func abort(bar *mpb.Bar) {
	if bar != nil {
		bar.Abort(false)
	}
}

func listPorts() error {
	defer gomidi.CloseDriver()
	names, err := midi.Ports(portScanTimeout)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no MIDI output ports")
		return nil
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
	return nil
}

func samplesDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second)).Round(time.Millisecond)
}
