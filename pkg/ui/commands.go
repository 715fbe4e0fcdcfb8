package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

// fetchTimeout bounds one page or payload request, retries included.
const fetchTimeout = 30 * time.Second

// flashDuration is how long a status message stays in the footer.
const flashDuration = 3 * time.Second

// pageLoadedMsg carries a finished page fetch back to the reconciler.
type pageLoadedMsg struct {
	result listview.FetchResult
}

// rolesLoadedMsg carries a role-detail payload for one roles epoch.
type rolesLoadedMsg struct {
	epoch   uint64
	payload model.RolesPayload
	err     error
}

// bootstrapLoadedMsg carries the bootstrap payload.
type bootstrapLoadedMsg struct {
	boot model.Bootstrap
	err  error
}

// searchDebounceMsg fires once the search input has been quiet long enough.
type searchDebounceMsg struct {
	id int
}

// frameMsg applies the pending scroll offset.
type frameMsg struct{}

// chunkMsg populates the next batch of role options.
type chunkMsg struct {
	epoch uint64
}

// snapshotChangedMsg reports that the offline snapshot was rewritten.
type snapshotChangedMsg struct{}

// snapshotReloadedMsg reports the result of re-importing the snapshot.
type snapshotReloadedMsg struct {
	err error
}

// flashClearMsg clears a footer message if it is still the current one.
type flashClearMsg struct {
	id int
}

// safeCmdWithPanic wraps an async operation with panic recovery.
// The errMsg function converts a panic value into the appropriate message type.
func safeCmdWithPanic(fn func() tea.Msg, errMsg func(any) tea.Msg) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = errMsg(r)
			}
		}()
		return fn()
	}
}

// fetchPageCmd runs task against src. A panic becomes a failed fetch for
// the same task so the reconciler releases its in-flight slot.
func fetchPageCmd(src remote.DataSource, task listview.FetchTask) tea.Cmd {
	return safeCmdWithPanic(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			page, err := src.FetchPage(ctx, task.Query, task.Page, task.PerPage)
			return pageLoadedMsg{result: listview.FetchResult{Task: task, Page: page, Err: err}}
		},
		func(r any) tea.Msg {
			err := fmt.Errorf("%w: page %d: panic: %v", remote.ErrFetchFailed, task.Page, r)
			return pageLoadedMsg{result: listview.FetchResult{Task: task, Err: err}}
		},
	)
}

// fetchRolesCmd loads the role-detail payload for q.
func fetchRolesCmd(src remote.RoleSource, q model.RolesQuery, epoch uint64) tea.Cmd {
	return safeCmdWithPanic(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			payload, err := src.Roles(ctx, q)
			return rolesLoadedMsg{epoch: epoch, payload: payload, err: err}
		},
		func(r any) tea.Msg {
			return rolesLoadedMsg{epoch: epoch, err: fmt.Errorf("%w: roles: panic: %v", remote.ErrFetchFailed, r)}
		},
	)
}

// bootstrapCmd loads the bootstrap payload.
func bootstrapCmd(src remote.Source) tea.Cmd {
	return safeCmdWithPanic(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			boot, err := src.Bootstrap(ctx)
			return bootstrapLoadedMsg{boot: boot, err: err}
		},
		func(r any) tea.Msg {
			return bootstrapLoadedMsg{err: fmt.Errorf("%w: bootstrap: panic: %v", remote.ErrFetchFailed, r)}
		},
	)
}

// waitForChange blocks until the snapshot watcher reports a change. A
// closed channel ends the subscription.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return snapshotChangedMsg{}
	}
}

// reloadCmd re-imports the snapshot.
func reloadCmd(reload func(context.Context) error) tea.Cmd {
	return safeCmdWithPanic(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			return snapshotReloadedMsg{err: reload(ctx)}
		},
		func(r any) tea.Msg {
			return snapshotReloadedMsg{err: fmt.Errorf("reload panic: %v", r)}
		},
	)
}

func debounceCmd(d time.Duration, id int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return searchDebounceMsg{id: id} })
}

func frameCmd() tea.Cmd {
	return tea.Tick(listview.FrameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func chunkCmd(epoch uint64) tea.Cmd {
	return tea.Tick(listview.FrameInterval, func(time.Time) tea.Msg { return chunkMsg{epoch: epoch} })
}

func flashClearCmd(id int) tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashClearMsg{id: id} })
}
