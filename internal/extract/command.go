package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs an external tool and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands as host processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ImageExtractor runs OCR through the tesseract CLI.
type ImageExtractor struct {
	Runner CommandRunner
	Bin    string
}

func (e *ImageExtractor) Modality() string { return ModalityImage }

func (e *ImageExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	if err := requireFile(path); err != nil {
		return nil, fmt.Errorf("image not found: %w", err)
	}
	out, err := e.Runner.Run(ctx, e.Bin, path, "stdout")
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return []string{string(out)}, nil
}

// AudioExtractor transcribes speech with the whisper CLI.
type AudioExtractor struct {
	Runner CommandRunner
	Bin    string
	Model  string
}

func (e *AudioExtractor) Modality() string { return ModalityAudio }

func (e *AudioExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	if err := requireFile(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	outDir, err := os.MkdirTemp("", "multirag-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	defer os.RemoveAll(outDir)

	if _, err := e.Runner.Run(ctx, e.Bin, path,
		"--model", e.Model,
		"--output_format", "txt",
		"--output_dir", outDir,
	); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return []string{strings.TrimSpace(string(data))}, nil
}

// VideoExtractor pulls the audio track with ffmpeg and transcribes it.
type VideoExtractor struct {
	Runner CommandRunner
	Bin    string
	Audio  *AudioExtractor
}

func (e *VideoExtractor) Modality() string { return ModalityVideo }

func (e *VideoExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	if err := requireFile(path); err != nil {
		return nil, fmt.Errorf("video not found: %w", err)
	}
	tmpDir, err := os.MkdirTemp("", "multirag-video-*")
	if err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	wav := filepath.Join(tmpDir, stem+"_audio.wav")
	if _, err := e.Runner.Run(ctx, e.Bin, "-y", "-i", path, "-vn", "-ac", "1", "-ar", "16000", wav); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}
	return e.Audio.Extract(ctx, wav)
}
