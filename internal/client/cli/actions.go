package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/connecta/internal/client/mutation"
)

// Like toggles the like on a post from one of the loaded feeds.
func (a *App) Like(ctx context.Context, arg string) error {
	return a.toggle(ctx, arg, mutation.KindLike)
}

// Save toggles the bookmark on a post from one of the loaded feeds.
func (a *App) Save(ctx context.Context, arg string) error {
	return a.toggle(ctx, arg, mutation.KindSave)
}

func (a *App) toggle(ctx context.Context, arg string, kind mutation.Kind) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}
	id, err := a.parseID(arg)
	if err != nil {
		return err
	}

	outcome, err := ws.toggle.Toggle(ctx, id, kind)
	switch {
	case errors.Is(err, mutation.ErrUnknownPost):
		fmt.Fprintf(a.out, "Post #%d is not in a loaded feed; open 'feed' or 'explore' first.\n", id)
		return err
	case err != nil:
		// the coordinator already told the user
		return err
	}

	p, ok := ws.lookup(id)
	if !ok {
		return nil
	}
	a.log.Debug(ctx, "toggle settled", "post", id, "kind", kind, "outcome", outcome)

	switch {
	case kind == mutation.KindLike && p.IsLiked:
		fmt.Fprintf(a.out, "Liked post #%d (%s).\n", id, plural(p.LikeCount, "like", "likes"))
	case kind == mutation.KindLike:
		fmt.Fprintf(a.out, "Unliked post #%d (%s).\n", id, plural(p.LikeCount, "like", "likes"))
	case p.IsSaved:
		fmt.Fprintf(a.out, "Saved post #%d.\n", id)
	default:
		fmt.Fprintf(a.out, "Removed post #%d from saved.\n", id)
	}
	return nil
}
