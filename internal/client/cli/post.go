package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

// Post collects a caption, a location and media paths, then publishes the
// post. Both feeds are marked stale on success.
func (a *App) Post(ctx context.Context) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}

	var form models.NewPost
	var err error

	if form.Caption, err = GetMultiline(a.reader, "Enter caption", a.out); err != nil {
		return err
	}
	if form.Location, err = getSimpleText(a.reader, "Enter location (optional)", a.out); err != nil {
		return err
	}
	paths, err := GetMultiline(a.reader, "Enter media file paths, one per line", a.out)
	if err != nil {
		return err
	}
	for _, path := range strings.Split(paths, "\n") {
		if path = strings.TrimSpace(path); path != "" {
			form.Media = append(form.Media, models.MediaUpload{Path: path, Type: guessMediaType(path)})
		}
	}
	off, err := getSimpleText(a.reader, "Disable comments? (y/N)", a.out)
	if err != nil {
		return err
	}
	form.CommentsDisabled = strings.EqualFold(off, "y") || strings.EqualFold(off, "yes")

	res := ws.posts.Create(ctx, form)
	if !res.Success {
		a.printResult(res)
		return errors.New(res.Error)
	}
	fmt.Fprintln(a.out, "Post published.")
	return nil
}

// guessMediaType picks the media type from the file extension. Unknown
// extensions are sent as images and rejected by validation.
func guessMediaType(path string) models.MediaType {
	if _, ok := models.MediaVideo.ContentType(path); ok {
		return models.MediaVideo
	}
	return models.MediaImage
}
