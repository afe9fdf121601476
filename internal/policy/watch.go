package policy

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the engine's document when the policy file changes on disk.
// Invalid replacements are logged and discarded; the previous document stays
// active. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, stateDir string, engine *Engine) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files via rename,
	// which drops a watch on the file itself.
	if err := watcher.Add(stateDir); err != nil {
		return err
	}

	target := Path(stateDir)
	log.Debug().Str("path", target).Msg("watching policy document")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			doc, err := parseFile(target)
			if err != nil {
				log.Warn().Err(err).Msg("policy reload rejected, keeping previous document")
				continue
			}
			if err := engine.Replace(doc); err != nil {
				log.Warn().Err(err).Msg("policy reload rejected, keeping previous document")
				continue
			}
			log.Info().Str("path", target).Msg("policy document reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("policy watcher error")
		}
	}
}
