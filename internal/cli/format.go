package cli

import (
	"fmt"
	"io"
	"time"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
	"micrecorder/internal/infra/library"
)

type formatter struct {
	w io.Writer
}

func newFormatter(w io.Writer) *formatter {
	return &formatter{w: w}
}

func (f *formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *formatter) Check(name string, ok bool, detail string) {
	mark := "✅"
	if !ok {
		mark = "❌"
	}
	fmt.Fprintf(f.w, "%s %s: %s\n", mark, name, detail)
}

func (f *formatter) RecordingStarted(info domain.SessionInfo) {
	fmt.Fprintf(f.w, "🔴 Recording to %s (%s)\n", info.OutputPath, info.SourceMode)
}

func (f *formatter) Status(st application.Status) {
	fmt.Fprintf(f.w, "State:      %s\n", st.State)
	fmt.Fprintf(f.w, "Foreground: %t\n", st.Foreground)
	if st.State == domain.StateRecording {
		fmt.Fprintf(f.w, "Session:    %s\n", st.Session.ID)
		fmt.Fprintf(f.w, "Output:     %s\n", st.Session.OutputPath)
		fmt.Fprintf(f.w, "Source:     %s\n", st.Session.SourceMode)
		if !st.Session.StartedAt.IsZero() {
			fmt.Fprintf(f.w, "Elapsed:    %s\n", formatDuration(time.Since(st.Session.StartedAt)))
		}
	}
	if st.LastRecording != nil {
		fmt.Fprintf(f.w, "Last:       %s\n", st.LastRecording.Path)
	}
	if st.LastError != "" {
		fmt.Fprintf(f.w, "Last error: %s\n", st.LastError)
	}
}

func (f *formatter) Recording(info *domain.RecordingInfo) {
	fmt.Fprintf(f.w, "📁 %s\n", info.Path)
	fmt.Fprintf(f.w, "   %s/%s, %d Hz, %d ch, %s, %s\n",
		info.Format,
		info.Codec,
		info.SampleRate,
		info.Channels,
		formatDuration(info.Duration),
		formatSize(info.Size),
	)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (f *formatter) RecordingList(entries []library.Entry) {
	if len(entries) == 0 {
		f.Info("No recordings found")
		return
	}
	fmt.Fprintf(f.w, "📁 Recordings:\n\n")
	for _, e := range entries {
		fmt.Fprintf(f.w, "  %s  %9s  %s\n", e.ModTime.Format("2006-01-02 15:04:05"), formatSize(e.Size), e.Name)
	}
}
