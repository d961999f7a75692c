package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imishinist/expctl/internal/models"
)

// File kinds written for every run key.
const (
	ExtLog   = ".log"
	ExtState = ".state"
	ExtModel = ".model"
	ExtPlot  = ".pdf"
	ExtCSV   = ".csv"
	ExtStats = ".stats"
	ExtJSON  = ".json"
)

const (
	ConfigDir   = "config"
	SummaryDir  = "summary"
	AggregateID = "result"
)

// Axis tags, in segment order.
const (
	TagModel    = "M"
	TagTrainer  = "T"
	TagEnhancer = "E"
	TagLoss     = "L"
)

// Namer maps run keys to files under Dir. It is a pure function of its inputs.
type Namer struct {
	Dir string
}

// TrialTag names the directory of a trial. Trials are 0-based internally and
// rendered 1-based; the aggregate sentinel renders as "result".
func TrialTag(trial models.Trial) string {
	if trial.IsAggregate() {
		return AggregateID
	}
	return fmt.Sprintf("trial%d", int(trial)+1)
}

// Base joins the present axis names in model, trainer, enhancer, loss order.
func Base(model, trainer, enhancer, loss string) string {
	var segments []string
	for _, s := range []struct{ tag, name string }{
		{TagModel, model},
		{TagTrainer, trainer},
		{TagEnhancer, enhancer},
		{TagLoss, loss},
	} {
		if s.name != "" {
			segments = append(segments, s.tag+s.name)
		}
	}
	return strings.Join(segments, "_")
}

func (n Namer) TrialDir(trial models.Trial) string {
	return filepath.Join(n.Dir, TrialTag(trial))
}

func (n Namer) Path(trial models.Trial, model, trainer, enhancer, loss, ext string) string {
	return filepath.Join(n.TrialDir(trial), Base(model, trainer, enhancer, loss)+ext)
}

// Key is Path for a run key.
func (n Namer) Key(key models.RunKey, ext string) string {
	return n.Path(key.Trial, key.Model, key.Trainer, key.Enhancer, key.Loss, ext)
}

// BasePath is the prefix handed to the trainer for its own output files.
func (n Namer) BasePath(key models.RunKey) string {
	return n.Key(key, "")
}

func (n Namer) ConfigDir() string {
	return filepath.Join(n.Dir, ConfigDir)
}

// ConfigPath is where the JSON payload of an axis entry is stored.
func (n Namer) ConfigPath(axis, name string) string {
	return filepath.Join(n.ConfigDir(), axis+"_"+name+ExtJSON)
}

func (n Namer) TaskPath() string {
	return filepath.Join(n.ConfigDir(), "task"+ExtJSON)
}

func (n Namer) SummaryDir() string {
	return filepath.Join(n.Dir, SummaryDir)
}

func (n Namer) SummaryPath(model, trainer, enhancer, loss, ext string) string {
	return filepath.Join(n.SummaryDir(), Base(model, trainer, enhancer, loss)+ext)
}

// LogPath is the experiment-wide log file.
func (n Namer) LogPath() string {
	return filepath.Join(n.Dir, "log")
}
