// SPDX-License-Identifier: Apache-2.0

package profiling

import (
	"errors"
	"fmt"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	loglib "github.com/xataio/docsync/pkg/log"
)

const (
	defaultCPUProfileFile    = "cpu.prof"
	defaultMemoryProfileFile = "mem.prof"
)

// Profiler captures a CPU profile for the lifetime of a command and a memory
// profile when it's stopped.
type Profiler struct {
	cpuFile       *os.File
	memoryProfile string
}

// StartServer exposes the /debug/pprof endpoints on the address on input.
// The server runs until the returned server is closed.
func StartServer(address string, logger loglib.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "profiling server stopped", loglib.Fields{"address": address})
		}
	}()
	logger.Info(fmt.Sprintf("profiling endpoints available on http://%s/debug/pprof/", address))
	return srv
}

// Start begins CPU profiling into cpuProfile. The memory profile is written
// to memoryProfile on Stop. Empty names fall back to cpu.prof and mem.prof.
func Start(cpuProfile, memoryProfile string) (*Profiler, error) {
	if cpuProfile == "" {
		cpuProfile = defaultCPUProfileFile
	}
	if memoryProfile == "" {
		memoryProfile = defaultMemoryProfileFile
	}

	cpuFile, err := os.Create(cpuProfile)
	if err != nil {
		return nil, fmt.Errorf("creating cpu profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return nil, fmt.Errorf("starting cpu profile: %w", err)
	}

	return &Profiler{
		cpuFile:       cpuFile,
		memoryProfile: memoryProfile,
	}, nil
}

// Stop flushes the CPU profile and writes the allocations profile.
func (p *Profiler) Stop() error {
	pprof.StopCPUProfile()
	if err := p.cpuFile.Close(); err != nil {
		return fmt.Errorf("closing cpu profile file: %w", err)
	}

	memFile, err := os.Create(p.memoryProfile)
	if err != nil {
		return fmt.Errorf("creating memory profile file: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.Lookup("allocs").WriteTo(memFile, 0); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	return nil
}
