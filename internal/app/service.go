package app

import (
	"context"
	"errors"
	"io"

	"reelcrew/internal/imagegen"
	"reelcrew/internal/script"
	"reelcrew/internal/speech"
	"reelcrew/internal/storage"
	"reelcrew/internal/video"
	"reelcrew/pkg/config"
	"reelcrew/pkg/prompts"
)

// ScriptWriter turns a topic into a validated script.
type ScriptWriter interface {
	Write(ctx context.Context, topic string) (*script.Script, error)
}

// Assembler renders the final video from finished artifacts.
type Assembler interface {
	Assemble(ctx context.Context, req video.AssembleRequest) (*video.AssembleResult, error)
}

type Service struct {
	cfg       *config.Config
	prompts   *prompts.Prompts
	writer    ScriptWriter
	speech    speech.Provider
	images    imagegen.Provider
	assembler Assembler
	workspace *storage.Workspace
	music     storage.MusicProvider
	closers   []io.Closer
}

type ServiceOptions struct {
	Config    *config.Config
	Prompts   *prompts.Prompts
	Writer    ScriptWriter
	Speech    speech.Provider
	Images    imagegen.Provider
	Assembler Assembler
	Workspace *storage.Workspace
	Music     storage.MusicProvider
	Closers   []io.Closer
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:       opts.Config,
		prompts:   opts.Prompts,
		writer:    opts.Writer,
		speech:    opts.Speech,
		images:    opts.Images,
		assembler: opts.Assembler,
		workspace: opts.Workspace,
		music:     opts.Music,
		closers:   opts.Closers,
	}
}

func (s *Service) Config() *config.Config        { return s.cfg }
func (s *Service) Prompts() *prompts.Prompts     { return s.prompts }
func (s *Service) Writer() ScriptWriter          { return s.writer }
func (s *Service) Speech() speech.Provider       { return s.speech }
func (s *Service) Images() imagegen.Provider     { return s.images }
func (s *Service) Assembler() Assembler          { return s.assembler }
func (s *Service) Workspace() *storage.Workspace { return s.workspace }
func (s *Service) Music() storage.MusicProvider  { return s.music }

// Close releases cloud clients opened while building the service.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
