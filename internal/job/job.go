// Package job records the state of one topic-to-video run. Producers read
// and update the record instead of inferring progress from each other's
// files.
package job

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"reelcrew/internal/script"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

type Kind string

const (
	KindVoiceover Kind = "voiceover"
	KindImage     Kind = "image"
)

type Artifact struct {
	Status Status `json:"status"`
	Path   string `json:"path"`
	Error  string `json:"error,omitempty"`
	// Reused is set when the file already existed before this run.
	Reused bool `json:"reused,omitempty"`
}

type Item struct {
	Position  int      `json:"position"`
	Caption   string   `json:"caption"`
	Voiceover Artifact `json:"voiceover"`
	Image     Artifact `json:"image"`
}

func (it *Item) Artifact(k Kind) *Artifact {
	if k == KindImage {
		return &it.Image
	}
	return &it.Voiceover
}

// Layout maps a 1-based caption position to its artifact paths.
type Layout interface {
	VoiceoverPath(pos int) string
	ImagePath(pos int) string
}

type Job struct {
	ID        uuid.UUID      `json:"id"`
	Topic     string         `json:"topic"`
	CreatedAt time.Time      `json:"created_at"`
	Script    *script.Script `json:"script,omitempty"`
	Items     []Item         `json:"items"`
}

func New(topic string) *Job {
	return &Job{
		ID:        uuid.New(),
		Topic:     topic,
		CreatedAt: time.Now(),
	}
}

// Plan attaches the script and creates one pending item per caption.
func (j *Job) Plan(s *script.Script, layout Layout) {
	j.Script = s
	j.Items = make([]Item, len(s.Captions))
	for i, c := range s.Captions {
		pos := i + 1
		j.Items[i] = Item{
			Position:  pos,
			Caption:   c,
			Voiceover: Artifact{Status: StatusPending, Path: layout.VoiceoverPath(pos)},
			Image:     Artifact{Status: StatusPending, Path: layout.ImagePath(pos)},
		}
	}
}

// Reconcile marks every artifact whose file is already on disk as done.
// It returns the number of artifacts found.
func (j *Job) Reconcile() (int, error) {
	found := 0
	for i := range j.Items {
		for _, k := range []Kind{KindVoiceover, KindImage} {
			a := j.Items[i].Artifact(k)
			if a.Status == StatusDone {
				continue
			}
			info, err := os.Stat(a.Path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return found, fmt.Errorf("stat %s: %w", a.Path, err)
			}
			if info.IsDir() || info.Size() == 0 {
				continue
			}
			a.Status = StatusDone
			a.Reused = true
			a.Error = ""
			found++
		}
	}
	return found, nil
}

func (j *Job) MarkDone(k Kind, pos int) {
	if it := j.item(pos); it != nil {
		a := it.Artifact(k)
		a.Status = StatusDone
		a.Error = ""
	}
}

func (j *Job) MarkFailed(k Kind, pos int, err error) {
	if it := j.item(pos); it != nil {
		a := it.Artifact(k)
		a.Status = StatusFailed
		a.Error = err.Error()
	}
}

// Pending returns the items whose artifact of kind k is not done yet,
// failed ones included.
func (j *Job) Pending(k Kind) []Item {
	var out []Item
	for _, it := range j.Items {
		if it.Artifact(k).Status != StatusDone {
			out = append(out, it)
		}
	}
	return out
}

// Paths returns the paths of the finished artifacts of kind k, in caption
// order.
func (j *Job) Paths(k Kind) []string {
	var out []string
	for _, it := range j.Items {
		if a := it.Artifact(k); a.Status == StatusDone {
			out = append(out, a.Path)
		}
	}
	return out
}

// Missing returns the positions that lack a finished artifact of kind k.
func (j *Job) Missing(k Kind) []int {
	var out []int
	for _, it := range j.Items {
		if it.Artifact(k).Status != StatusDone {
			out = append(out, it.Position)
		}
	}
	return out
}

func (j *Job) Captions() []string {
	out := make([]string, len(j.Items))
	for i, it := range j.Items {
		out[i] = it.Caption
	}
	return out
}

func (j *Job) Complete() bool {
	return len(j.Items) > 0 && len(j.Missing(KindVoiceover)) == 0 && len(j.Missing(KindImage)) == 0
}

func (j *Job) item(pos int) *Item {
	if pos < 1 || pos > len(j.Items) {
		return nil
	}
	return &j.Items[pos-1]
}
