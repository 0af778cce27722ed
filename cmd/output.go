// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/pkg/docstore"
)

var errOperationFailed = errors.New("operation failed")

// printResponse writes the result of a store operation to w as indented
// JSON. It returns an error when the operation failed, so the command exits
// with a non zero code.
func printResponse(w io.Writer, data any, err error) error {
	resp := docstore.NewResponse(data, err)
	out, marshalErr := json.MarshalIndent(resp, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("formatting response: %w", marshalErr)
	}
	fmt.Fprintln(w, string(out))

	switch resp.Status {
	case docstore.StatusOK, docstore.StatusNoDocuments:
		return nil
	default:
		return fmt.Errorf("%w: %s", errOperationFailed, resp.ErrorKind)
	}
}

// finishSpinner reports the outcome of the operation on the spinner, if any.
func finishSpinner(sp *pterm.SpinnerPrinter, success string, err error) {
	if sp == nil {
		return
	}
	if err != nil {
		sp.Fail(err.Error())
		return
	}
	sp.Success(success)
}

func startSpinner(text string) *pterm.SpinnerPrinter {
	sp, err := pterm.DefaultSpinner.WithWriter(os.Stderr).WithText(text).Start()
	if err != nil {
		return nil
	}
	return sp
}
