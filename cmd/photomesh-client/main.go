// Command photomesh-client exercises a running photomesh service from
// the terminal: submit reconstruction jobs, watch their progress over
// the event stream with polling fallback, and download finished models.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/photomesh/photomesh/internal/client"
	"github.com/photomesh/photomesh/internal/domain/model"
	"github.com/photomesh/photomesh/internal/tracker"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger}
	if err := cmd.run(cmdCtx, os.Args[2:]); err != nil {
		logger.Error("command failed", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal command failure to shell scripts
	}
}

func commands() map[string]command {
	cmds := []command{
		{"submit", "upload images and start a reconstruction job", runSubmit},
		{"status", "print the current state of a job", runStatus},
		{"queue", "print queue depth and processing slot", runQueue},
		{"cancel", "request cancellation of a job", runCancel},
		{"watch", "follow a job's progress until it finishes", runWatch},
		{"download", "download the model of a completed job", runDownload},
	}
	m := make(map[string]command, len(cmds))
	for _, c := range cmds {
		m[c.name] = c
	}
	return m
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: photomesh-client <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range []string{"submit", "status", "queue", "cancel", "watch", "download"} {
		c := commands()[name]
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.description)
	}
}

func newGateway(server string) (*client.Client, error) {
	return client.New(client.Options{BaseURL: server})
}

func runSubmit(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	dir := fs.String("dir", "", "directory of .jpg/.jpeg/.png images to upload")
	count := fs.Int("count", 0, "number of synthetic test images to generate instead of -dir")
	quality := fs.String("quality", "high", "reconstruction quality preset")
	maxFeatures := fs.Int("max-features", 5000, "feature extraction cap per image")
	gpu := fs.Bool("gpu", false, "request GPU-assisted processing")
	watch := fs.Bool("watch", false, "follow progress until the job finishes")
	out := fs.String("out", "", "write the finished model here (implies -watch)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	files, err := collectImages(*dir, *count)
	if err != nil {
		return err
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}

	job, err := gw.Upload(ctx.Ctx, files, client.UploadOptions{
		Quality:     *quality,
		MaxFeatures: *maxFeatures,
		EnableGPU:   *gpu,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	fmt.Printf("job %s submitted (%d images)\n", job.ID, len(files))

	if !*watch && *out == "" {
		return nil
	}
	view, err := watchJob(ctx, gw, job.ID)
	if err != nil {
		return err
	}
	if *out == "" {
		return nil
	}
	if view.Status != model.JobStatusCompleted {
		return fmt.Errorf("job finished %s; nothing to download", view.Status)
	}
	return downloadModel(ctx.Ctx, gw, job.ID, *out)
}

func runStatus(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	jobID := fs.String("job", "", "job ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("-job is required")
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}
	rec, err := gw.JobStatus(ctx.Ctx, *jobID)
	if err != nil {
		return err
	}

	fmt.Printf("job %s: %s (%d%%)\n", rec.ID, rec.Status, rec.Progress)
	if rec.Message != "" {
		fmt.Printf("  %s\n", rec.Message)
	}
	if rec.QueuePosition > 0 {
		fmt.Printf("  queue position %d\n", rec.QueuePosition)
	}
	if rec.Error != nil {
		fmt.Printf("  error [%s]: %s\n", rec.Error.Code, rec.Error.Message)
	}
	return nil
}

func runQueue(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}
	qs, err := gw.QueueStatus(ctx.Ctx)
	if err != nil {
		return err
	}

	fmt.Printf("queued: %d\n", qs.QueueLength)
	if qs.IsProcessing {
		fmt.Printf("processing: %s\n", qs.ProcessingJob)
	} else {
		fmt.Println("processing: idle")
	}
	for _, entry := range qs.QueuedJobs {
		fmt.Printf("  %d. %s\n", entry.Position, entry.JobID)
	}
	return nil
}

func runCancel(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	jobID := fs.String("job", "", "job ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("-job is required")
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}
	status, err := gw.CancelJob(ctx.Ctx, *jobID)
	if err != nil {
		return err
	}
	fmt.Printf("job %s: %s\n", *jobID, status)
	return nil
}

func runWatch(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	jobID := fs.String("job", "", "job ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("-job is required")
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}
	_, err = watchJob(ctx, gw, *jobID)
	return err
}

func runDownload(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8000", "photomesh service base URL")
	jobID := fs.String("job", "", "job ID")
	out := fs.String("out", "model.glb", "output path for the model file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("-job is required")
	}

	gw, err := newGateway(*server)
	if err != nil {
		return err
	}
	return downloadModel(ctx.Ctx, gw, *jobID, *out)
}

// watchJob runs a Tracker until the job reaches a terminal state,
// printing every view change. Interrupt requests a server-side cancel
// before exiting.
func watchJob(ctx *commandContext, gw *client.Client, jobID string) (tracker.ProgressView, error) {
	var lastLine string
	tr, err := tracker.New(tracker.Options{
		Gateway: gw,
		Logger:  ctx.Logger,
		OnUpdate: func(v tracker.ProgressView) {
			line := renderView(v)
			if line != lastLine {
				fmt.Println(line)
				lastLine = line
			}
		},
	})
	if err != nil {
		return tracker.ProgressView{}, err
	}
	if err := tr.Start(ctx.Ctx, jobID); err != nil {
		return tracker.ProgressView{}, err
	}

	select {
	case <-tr.Done():
	case <-ctx.Ctx.Done():
		fmt.Println("interrupted; cancelling job...")
		if cerr := tr.CancelProcessing(context.Background()); cerr != nil {
			ctx.Logger.Warn("cancel request failed", "error", cerr)
		}
		<-tr.Done()
	}

	view := tr.View()
	fmt.Printf("job %s finished: %s\n", jobID, view.Status)
	if view.Err != nil {
		fmt.Printf("  error [%s]: %s\n", view.Err.Code, view.Err.Message)
	}
	return view, nil
}

func renderView(v tracker.ProgressView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%3d%%] %s", v.Progress, v.Status)
	if v.QueuePosition > 0 {
		fmt.Fprintf(&b, " (position %d, est. wait %s)", v.QueuePosition, v.EstimatedWait)
	}
	if v.Message != "" {
		fmt.Fprintf(&b, " %s", v.Message)
	}
	return b.String()
}

func downloadModel(ctx context.Context, gw *client.Client, jobID, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	n, err := gw.Download(ctx, jobID, f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, client.ErrNotCompleted) {
			return fmt.Errorf("job %s has no model yet: %w", jobID, err)
		}
		return fmt.Errorf("download: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, n)
	return nil
}

// collectImages reads images from dir, or generates count synthetic
// JPEGs when no directory is given.
func collectImages(dir string, count int) ([]client.UploadFile, error) {
	if dir != "" {
		return readImageDir(dir)
	}
	if count <= 0 {
		return nil, errors.New("either -dir or -count is required")
	}
	return generateImages(count)
}

func readImageDir(dir string) ([]client.UploadFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	var files []client.UploadFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", entry.Name(), err)
		}
		files = append(files, client.UploadFile{Name: entry.Name(), Data: data})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return files, nil
}

// generateImages produces minimal JPEG files with random payloads,
// enough to exercise the upload and processing paths end to end.
func generateImages(count int) ([]client.UploadFile, error) {
	files := make([]client.UploadFile, count)

	var g errgroup.Group
	g.SetLimit(4)
	for i := range count {
		g.Go(func() error {
			data, err := syntheticJPEG(8 * 1024)
			if err != nil {
				return err
			}
			files[i] = client.UploadFile{
				Name: fmt.Sprintf("test_image_%03d.jpg", i+1),
				Data: data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate images: %w", err)
	}
	return files, nil
}

func syntheticJPEG(payloadSize int) ([]byte, error) {
	header := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	payload := make([]byte, payloadSize)
	if _, err := rand.Read(payload); err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(header)+payloadSize+2)
	data = append(data, header...)
	data = append(data, payload...)
	data = append(data, 0xff, 0xd9)
	return data, nil
}
