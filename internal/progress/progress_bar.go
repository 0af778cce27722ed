// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar reports the progress of a long running CLI operation.
type Bar interface {
	Add(int) error
	Close() error
}

type ProgressBar struct {
	*progressbar.ProgressBar
}

var barTheme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// NewBytesBar returns a bar tracking how many of the totalBytes of a file
// have been read.
func NewBytesBar(w io.Writer, totalBytes int64, description string) *ProgressBar {
	return &ProgressBar{
		ProgressBar: progressbar.NewOptions64(totalBytes,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowTotalBytes(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetTheme(barTheme),
			progressbar.OptionOnCompletion(func() {
				io.WriteString(w, "\n")
			})),
	}
}

// NewCountBar returns a spinner counting processed items, for operations
// where the total is not known upfront.
func NewCountBar(w io.Writer, description string) *ProgressBar {
	return &ProgressBar{
		ProgressBar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("docs"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish()),
	}
}
