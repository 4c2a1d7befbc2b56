// Package session runs inference sessions against the slot manager: one-shot
// file transcriptions and long-lived streaming sessions. It implements the
// service consumed by the HTTP layer.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"asrd/internal/backend"
	"asrd/internal/catalog"
	"asrd/internal/common/fsutil"
	"asrd/internal/manager"
	"asrd/pkg/types"
)

// ModelLister lists the model ids offered to clients.
type ModelLister interface {
	Models() []string
}

// Options configures a Service.
type Options struct {
	Manager *manager.Manager
	// Models defaults to the catalog's built-in list.
	Models       ModelLister
	DefaultModel string
	Logger       *zerolog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	m            *manager.Manager
	models       ModelLister
	defaultModel string
	log          zerolog.Logger
}

type catalogModels struct{}

func (catalogModels) Models() []string { return catalog.Models() }

// New constructs a Service.
func New(o Options) *Service {
	s := &Service{m: o.Manager, models: o.Models, defaultModel: o.DefaultModel, log: zerolog.Nop()}
	if s.models == nil {
		s.models = catalogModels{}
	}
	if s.defaultModel == "" {
		s.defaultModel = catalog.ModelLarge
	}
	if o.Logger != nil {
		s.log = o.Logger.With().Str("component", "session").Logger()
	}
	return s
}

// FileRequest is one transcription of an audio file on local disk.
type FileRequest struct {
	AudioPath string
	// Model defaults to the service default.
	Model string
	// Precision accepts bf16/bfloat16/fp16/float16; empty uses the default.
	Precision  string
	Language   string
	Timestamps bool
}

// FileResult is a transcription plus timing.
type FileResult struct {
	backend.Result
	Model       string
	LoadTime    time.Duration
	ProcessTime time.Duration
}

func (s *Service) loadRequest(model, precision string) manager.LoadRequest {
	model = strings.TrimSpace(model)
	if model == "" {
		model = s.defaultModel
	}
	return manager.LoadRequest{Model: model, Precision: manager.Precision(precision)}
}

// Transcribe checks the input exists, acquires the model and runs one
// inference outside the slot lock. If the model was unloaded underneath the
// call it is re-acquired and retried once.
func (s *Service) Transcribe(ctx context.Context, req FileRequest) (FileResult, error) {
	if !fsutil.IsFile(req.AudioPath) {
		return FileResult{}, manager.ErrInputNotFound(req.AudioPath)
	}
	lr := s.loadRequest(req.Model, req.Precision)
	breq := backend.Request{
		AudioPath:  req.AudioPath,
		Language:   catalog.NormalizeLanguage(req.Language),
		Timestamps: req.Timestamps,
	}

	var out FileResult
	for attempt := 0; ; attempt++ {
		t0 := time.Now()
		lm, err := s.m.Acquire(ctx, lr)
		out.LoadTime += time.Since(t0)
		if err != nil {
			return FileResult{}, err
		}

		t1 := time.Now()
		res, err := lm.Handle.Transcribe(ctx, breq)
		out.ProcessTime = time.Since(t1)
		if errors.Is(err, backend.ErrHandleClosed) && attempt == 0 {
			s.log.Info().Str("model", lm.Request.Model).Msg("model unloaded during request; retrying")
			// a handle that died while still in the slot is dropped so the
			// retry reloads it
			if _, err := s.m.Evict(ctx, manager.IfCurrent(lm)); err != nil {
				return FileResult{}, err
			}
			continue
		}
		if err != nil {
			return FileResult{}, fmt.Errorf("transcribe %s: %w", lm.Request.Model, err)
		}
		lm.Touch()
		out.Result = res
		out.Model = lm.Request.Model
		return out, nil
	}
}

// Offload evicts the slot and reports whether a model was released.
func (s *Service) Offload(ctx context.Context) (bool, error) {
	return s.m.Evict(ctx)
}

// Status returns the slot status.
func (s *Service) Status(ctx context.Context) types.StatusResponse {
	return s.m.Status(ctx)
}

// ServiceStatus returns the slot status plus catalog information.
func (s *Service) ServiceStatus(ctx context.Context) types.ServiceStatusResponse {
	return types.ServiceStatusResponse{
		StatusResponse:     s.m.Status(ctx),
		SupportedLanguages: catalog.Languages(),
		Dialects:           catalog.Dialects(),
		AvailableModels:    s.Models(),
	}
}

func (s *Service) Languages() types.LanguagesResponse {
	return types.LanguagesResponse{Languages: catalog.Languages(), Dialects: catalog.Dialects()}
}

func (s *Service) Models() []string { return s.models.Models() }

func (s *Service) DefaultModel() string { return s.defaultModel }

func (s *Service) Ready() bool { return s.m.Ready() }
