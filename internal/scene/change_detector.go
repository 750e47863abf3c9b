package scene

import (
	"encoding/json"
	"hash/fnv"
	"reflect"

	"github.com/yegors/routemap/pkg/logger"
)

// Change types reported by ChangeDetector
const (
	ChangeView         = "view"
	ChangeLayerAdded   = "layer_added"
	ChangeLayerUpdated = "layer_updated"
	ChangeLayerRemoved = "layer_removed"
)

// SceneChange is one difference between two successive scenes
type SceneChange struct {
	Type  string `json:"type"`
	Layer string `json:"layer,omitempty"`
}

// ChangeDetector tracks a scene between snapshots so only real changes are pushed
type ChangeDetector struct {
	previousView   *Scene
	previousLayers map[string]uint64
	logger         *logger.Logger
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(logger *logger.Logger) *ChangeDetector {
	return &ChangeDetector{
		previousLayers: make(map[string]uint64),
		logger:         logger.Named("change-detector"),
	}
}

// DetectChanges compares current with the previous scene and remembers current
func (cd *ChangeDetector) DetectChanges(current *Scene) []SceneChange {
	changes := []SceneChange{}

	view := viewOnly(current)
	if cd.previousView == nil || !reflect.DeepEqual(cd.previousView, view) {
		changes = append(changes, SceneChange{Type: ChangeView})
	}
	cd.previousView = view

	currentLayers := make(map[string]uint64, len(current.Layers))
	for _, l := range current.Layers {
		sum, err := fingerprint(l)
		if err != nil {
			cd.logger.Warn("Failed to fingerprint layer", logger.String("layer", l.Title), logger.Error(err))
			continue
		}
		currentLayers[l.Title] = sum

		previous, exists := cd.previousLayers[l.Title]
		switch {
		case !exists:
			changes = append(changes, SceneChange{Type: ChangeLayerAdded, Layer: l.Title})
		case previous != sum:
			changes = append(changes, SceneChange{Type: ChangeLayerUpdated, Layer: l.Title})
		}
	}

	for title := range cd.previousLayers {
		if _, exists := currentLayers[title]; !exists {
			changes = append(changes, SceneChange{Type: ChangeLayerRemoved, Layer: title})
		}
	}

	cd.previousLayers = currentLayers
	return changes
}

func viewOnly(s *Scene) *Scene {
	v := *s
	v.Layers = nil
	return &v
}

func fingerprint(l LayerScene) (uint64, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64(), nil
}
