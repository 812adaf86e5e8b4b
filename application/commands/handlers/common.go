package handlers

import (
	"context"

	"kaku/application/commands"
	"kaku/application/commands/bus"
	"kaku/application/ports"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// handler is the typed form every handler in this package implements
type handler[C bus.Command] interface {
	Handle(ctx context.Context, cmd C) error
}

type handlerFunc[C bus.Command] func(ctx context.Context, cmd C) error

func (f handlerFunc[C]) Handle(ctx context.Context, cmd C) error { return f(ctx, cmd) }

// adapt lets a typed handler sit on the command bus
func adapt[C bus.Command](h handler[C]) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(C)
		if !ok {
			return pkgerrors.NewInternalError("unexpected command type")
		}
		return h.Handle(ctx, c)
	})
}

// Set groups every command handler for registration
type Set struct {
	CreateNote     *CreateNoteHandler
	CreateThought  *CreateThoughtHandler
	Scratch        *ScratchHandler
	Refute         *RefuteThoughtHandler
	Link           *LinkThoughtHandler
	Tag            *TagPoIHandler
	Categorize     *CategorizePoIHandler
	CreateProject  *CreateProjectHandler
	SetProjectLock *SetProjectLockHandler
	RegisterScribe *RegisterScribeHandler
}

// Register binds every handler of the set to b
func (s *Set) Register(b *bus.CommandBus) error {
	regs := []struct {
		cmd bus.Command
		h   bus.CommandHandler
	}{
		{commands.CreateNoteCommand{}, adapt[commands.CreateNoteCommand](s.CreateNote)},
		{commands.CreateThoughtCommand{}, adapt[commands.CreateThoughtCommand](s.CreateThought)},
		{commands.ScratchNoteCommand{}, adapt[commands.ScratchNoteCommand](handlerFunc[commands.ScratchNoteCommand](s.Scratch.HandleNote))},
		{commands.ScratchThoughtCommand{}, adapt[commands.ScratchThoughtCommand](handlerFunc[commands.ScratchThoughtCommand](s.Scratch.HandleThought))},
		{commands.RefuteThoughtCommand{}, adapt[commands.RefuteThoughtCommand](s.Refute)},
		{commands.LinkThoughtCommand{}, adapt[commands.LinkThoughtCommand](s.Link)},
		{commands.TagPoICommand{}, adapt[commands.TagPoICommand](s.Tag)},
		{commands.CategorizePoICommand{}, adapt[commands.CategorizePoICommand](s.Categorize)},
		{commands.CreateProjectCommand{}, adapt[commands.CreateProjectCommand](s.CreateProject)},
		{commands.SetProjectLockCommand{}, adapt[commands.SetProjectLockCommand](s.SetProjectLock)},
		{commands.RegisterScribeCommand{}, adapt[commands.RegisterScribeCommand](s.RegisterScribe)},
	}
	for _, r := range regs {
		if err := b.Register(r.cmd, r.h); err != nil {
			return err
		}
	}
	return nil
}

// endpoint loads a PoI referenced by a relation (parent, link target,
// refuter). A missing endpoint is an illegal state for the relation rather
// than a missing resource of the request.
func endpoint(ctx context.Context, pois ports.PoIRepository, id valueobjects.PoIID, role string) (*entities.PoI, error) {
	p, err := pois.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewInvalidStateError(role+" "+id.String()+" does not exist").
				WithDetail(role, id.String())
		}
		return nil, err
	}
	return p, nil
}

// writableProject loads a project and checks it accepts new PoIs, and that
// the scribe exists.
func writableProject(
	ctx context.Context,
	projects ports.ProjectRepository,
	scribes ports.ScribeRepository,
	projectID valueobjects.ProjectID,
	scribeID valueobjects.ScribeID,
) error {
	project, err := projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if err := project.EnsureWritable(); err != nil {
		return err
	}
	if _, err := scribes.Get(ctx, scribeID); err != nil {
		return err
	}
	return nil
}

func parsePoIIDs(raw []string) ([]valueobjects.PoIID, error) {
	out := make([]valueobjects.PoIID, 0, len(raw))
	for _, s := range raw {
		id, err := valueobjects.ParsePoIID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
