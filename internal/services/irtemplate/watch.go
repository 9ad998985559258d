package irtemplate

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"
)

// templateWatcher watches the templates directory and invalidates the
// per-sec-code cache entry of any "<sec_code>_*.yaml" file that changes,
// so templates edited out-of-band are picked up without a restart.
type templateWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newTemplateWatcher(dir string, invalidate func(secCode string), logger arbor.ILogger) (*templateWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	tw := &templateWatcher{watcher: watcher, done: make(chan struct{})}
	go tw.run(invalidate, logger)
	return tw, nil
}

func (tw *templateWatcher) run(invalidate func(secCode string), logger arbor.ILogger) {
	defer close(tw.done)
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			secCode := secCodeFromFilename(event.Name)
			if secCode != "" {
				invalidate(secCode)
			}
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("IR template watcher error")
		}
	}
}

func secCodeFromFilename(path string) string {
	base := path
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		base = path[idx+1:]
	}
	parts := strings.SplitN(strings.TrimSuffix(base, ".yaml"), "_", 2)
	if len(parts) != 2 || len(parts[0]) != 5 || !isDigits(parts[0]) {
		return ""
	}
	return parts[0]
}

func (tw *templateWatcher) Close() error {
	err := tw.watcher.Close()
	<-tw.done
	return err
}
