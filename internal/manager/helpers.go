package manager

import (
	"strings"

	"asrd/internal/backend"
)

// normalize validates req and applies the default precision.
func (m *Manager) normalize(req LoadRequest) (LoadRequest, error) {
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return req, ErrInvalidRequest("model is required")
	}
	p, err := ParsePrecision(string(req.Precision))
	if err != nil {
		return req, err
	}
	if p == "" {
		p = m.defaultPrecision
	}
	req.Precision = p
	return req, nil
}

// resolve maps a model id to its storage location. Unknown ids fail here,
// before the slot is touched.
func (m *Manager) resolve(model string) (string, error) {
	if m.resolver == nil {
		return model, nil
	}
	path, err := m.resolver.Resolve(model)
	if err != nil {
		if IsModelNotFound(err) {
			return "", err
		}
		return "", modelNotFoundError{id: model, err: err}
	}
	return path, nil
}

func (m *Manager) spec(req LoadRequest, path string) backend.Spec {
	return backend.Spec{
		Model:        req.Model,
		Path:         path,
		Precision:    req.Precision.DType(),
		Device:       m.device,
		AlignerPath:  m.alignerPath,
		MaxBatchSize: m.maxBatchSize,
		MaxNewTokens: m.maxNewTokens,
	}
}
