/*
NAME
  modemctl

DESCRIPTION
  modemctl is a reference command-line client for the acoustic modem
  core: it sends one file over an ALSA or WAV audio channel, or runs a
  streaming receiver until interrupted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements modemctl, a reference CLI client for the
// acoustic modem core.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/device/audioio"
	"github.com/ausocean/acoustic-modem/device/wavio"
	"github.com/ausocean/acoustic-modem/modem"
	"github.com/ausocean/acoustic-modem/modem/config"
)

// Logging configuration, mirrored from the pack's own CLI clients.
const (
	logPath      = "modemctl.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = false
)

// modulationFlags maps the CLI's --modulation values onto config.Modulation.
var modulationFlags = map[string]config.Modulation{
	"qpsk":          config.QPSK,
	"16qam":         config.QAM16,
	"bpsk-acoustic": config.BPSKAcoustic,
	"bpsk-repeat":   config.BPSKRepeat,
	"bpsk-narrow":   config.BPSKNarrow,
}

func main() {
	sendPtr := flag.String("send", "", "path of a file to send, then exit")
	recvDirPtr := flag.String("recv-dir", "", "directory to write received files into; runs until interrupted")
	wavOutPtr := flag.String("wav-out", "", "play into this WAV file instead of an ALSA device")
	wavInPtr := flag.String("wav-in", "", "receive from this WAV file instead of an ALSA device")
	modPtr := flag.String("modulation", "bpsk-acoustic", "one of qpsk, 16qam, bpsk-acoustic, bpsk-repeat, bpsk-narrow")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	mod, ok := modulationFlags[*modPtr]
	if !ok {
		log.Fatal("unknown modulation", "modulation", *modPtr)
	}
	cfg := config.Config{Modulation: mod, Logger: log}
	// Validate before opening the audio device so SampleRate is already
	// defaulted from the resolved profile's rate -- openSink/openSource
	// must never negotiate a rate the modulation wasn't authored for.
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	switch {
	case *sendPtr != "":
		runSend(cfg, *sendPtr, *wavOutPtr, log)
	case *recvDirPtr != "":
		runReceive(cfg, *recvDirPtr, *wavInPtr, log)
	default:
		log.Fatal("specify either -send or -recv-dir")
	}
}

func runSend(cfg config.Config, path, wavOut string, log logging.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("could not read file", "error", err)
	}

	sink, closeSink := openSink(cfg, wavOut, log)
	defer closeSink()

	store := &diskStore{dir: os.TempDir()}
	s, err := modem.New(cfg, sink, nullSource{}, store, nullHandler{})
	if err != nil {
		log.Fatal("could not initialise session", "error", err)
	}

	log.Log(logging.Info, "sending file", "path", path, "bytes", len(data))
	if err := s.SendFile(filepath.Base(path), data); err != nil {
		log.Fatal("send failed", "error", err)
	}
	log.Log(logging.Info, "send complete", "bitrate", s.Bitrate())
}

func runReceive(cfg config.Config, dir, wavIn string, log logging.Logger) {
	source, closeSource := openSource(cfg, wavIn, log)
	defer closeSource()

	store := &diskStore{dir: dir}
	h := &fileHandler{dir: dir, log: log}
	s, err := modem.New(cfg, nullSink{}, source, store, h)
	if err != nil {
		log.Fatal("could not initialise session", "error", err)
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	log.Log(logging.Info, "receiving into", "dir", dir)
	if err := s.RunReceiver(stop); err != nil {
		log.Log(logging.Warning, "receiver stopped", "error", err)
	}
}

func openSink(cfg config.Config, wavOut string, log logging.Logger) (modemAudioSink, func()) {
	if wavOut != "" {
		sink, err := wavio.NewSink(wavOut, cfg.SampleRate)
		if err != nil {
			log.Fatal("could not open wav sink", "error", err)
		}
		return sink, func() { sink.Close() }
	}
	sink, err := audioio.NewSink(audioio.Config{SampleRate: cfg.SampleRate, Channels: int(cfg.Channels), BitDepth: int(cfg.BitDepth), Title: cfg.AudioTitle}, log)
	if err != nil {
		log.Fatal("could not open alsa sink", "error", err)
	}
	return sink, func() { sink.Close() }
}

func openSource(cfg config.Config, wavIn string, log logging.Logger) (modem.AudioSource, func()) {
	if wavIn != "" {
		source, err := wavio.NewSource(wavIn)
		if err != nil {
			log.Fatal("could not open wav source", "error", err)
		}
		return source, func() {}
	}
	source, err := audioio.NewSource(audioio.Config{SampleRate: cfg.SampleRate, Channels: int(cfg.Channels), BitDepth: int(cfg.BitDepth), Title: cfg.AudioTitle}, log)
	if err != nil {
		log.Fatal("could not open alsa source", "error", err)
	}
	return source, func() { source.Close() }
}

// modemAudioSink is the minimal interface both wavio.Sink and
// audioio.Sink satisfy, used only to share openSink's return type.
type modemAudioSink interface {
	Write(samples []float32) error
}

type nullSink struct{}

func (nullSink) Write(samples []float32) error { return nil }

type nullSource struct{}

func (nullSource) Read(n int) ([]float32, error) { return make([]float32, n), nil }

type nullHandler struct{}

func (nullHandler) OnMetadata(m chunk.Metadata)                     {}
func (nullHandler) OnChunk(seq uint32, stored bool)                 {}
func (nullHandler) OnComplete(file []byte, name string)             {}
func (nullHandler) OnLegacy(name string, data []byte, crcValid bool) {}
func (nullHandler) OnFrameError(err error)                          {}

// fileHandler writes completed files to dir and logs every event.
type fileHandler struct {
	dir string
	log logging.Logger
}

func (h *fileHandler) OnMetadata(m chunk.Metadata) {
	h.log.Log(logging.Info, "metadata received", "name", m.Name, "totalChunks", m.TotalChunks)
}

func (h *fileHandler) OnChunk(seq uint32, stored bool) {
	h.log.Log(logging.Debug, "chunk received", "seq", seq, "stored", stored)
}

func (h *fileHandler) OnComplete(file []byte, name string) {
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, file, 0o644); err != nil {
		h.log.Log(logging.Error, "could not write received file", "path", path, "error", err)
		return
	}
	h.log.Log(logging.Info, "file complete", "path", path, "bytes", len(file))
}

func (h *fileHandler) OnLegacy(name string, data []byte, crcValid bool) {
	if !crcValid {
		h.log.Log(logging.Warning, "legacy packet failed crc", "name", name)
		return
	}
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.log.Log(logging.Error, "could not write legacy file", "path", path, "error", err)
		return
	}
	h.log.Log(logging.Info, "legacy file complete", "path", path, "bytes", len(data))
}

func (h *fileHandler) OnFrameError(err error) {
	h.log.Log(logging.Warning, "frame error", "error", err)
}

// diskStore implements chunk.Store over a plain directory of
// seq-numbered files, adequate for a reference CLI client.
type diskStore struct {
	dir string
}

func (d *diskStore) Put(seq uint32, data []byte) error {
	return os.WriteFile(d.path(seq), data, 0o644)
}

func (d *diskStore) Get(seq uint32) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(seq))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (d *diskStore) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".chunk" {
			os.Remove(filepath.Join(d.dir, e.Name()))
		}
	}
	return nil
}

func (d *diskStore) path(seq uint32) string {
	return filepath.Join(d.dir, filepath.Base(os.Args[0])+"."+itoa(seq)+".chunk")
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
