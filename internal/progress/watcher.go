package progress

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces bursts of writes into one update. Agents tend
// to rewrite the whole document, which some editors do as several syscalls.
const debounceInterval = 200 * time.Millisecond

// Update is one observed change of a thread's progress document.
type Update struct {
	// ThreadID identifies the thread whose document changed.
	ThreadID string
	// Content is the full document after the change.
	Content string
}

// Watcher tails a thread's progress document while a run executes and
// delivers debounced snapshots. Updates are dropped rather than blocking
// when the consumer falls behind.
type Watcher struct {
	threadID string
	dir      string
	filename string

	fs      *fsnotify.Watcher
	updates chan Update
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching the document at dir/filename. The directory is
// watched rather than the file itself, so the watch survives the file being
// replaced.
func Watch(threadID, dir, filename string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		threadID: threadID,
		dir:      dir,
		filename: filename,
		fs:       fs,
		updates:  make(chan Update, 8),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Updates returns the channel of debounced document snapshots.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.done)
		w.fs.Close()
	})
}

func (w *Watcher) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.filename {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceInterval)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			content, ok := Read(w.dir, w.filename)
			if !ok {
				continue
			}
			select {
			case w.updates <- Update{ThreadID: w.threadID, Content: content}:
			default:
			}
		case <-w.fs.Errors:
			// Keep watching.
		}
	}
}
