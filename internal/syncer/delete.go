package syncer

import (
	"context"
	"fmt"

	"todolist/internal/service"
)

// DeleteTask deletes a task and confirms the delete with a read. A task that
// is still visible is deleted again, up to the attempt budget. Store errors
// are returned immediately.
func (c *Coordinator) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}
	if !service.ValidSegment(taskID) {
		return fmt.Errorf("%w: bad id %q", ErrInvalidTask, taskID)
	}

	if err := c.deleteVerified(ctx, service.TaskPath(owner, taskID)); err != nil {
		return err
	}
	c.cache.RemoveTask(owner, taskID)
	return nil
}

func (c *Coordinator) deleteVerified(ctx context.Context, path string) error {
	bo := c.opts.Backoff
	for attempt := 1; attempt <= c.opts.DeleteAttempts; attempt++ {
		if attempt > 1 {
			if err := c.opts.Sleep(ctx, bo.Pause()); err != nil {
				return err
			}
		}

		gone, err := c.deleteOnce(ctx, path)
		if err != nil {
			return err
		}
		if gone {
			if attempt > 1 {
				c.log.Info("delete confirmed", "path", path, "attempt", attempt)
			}
			return nil
		}
		c.log.Warn("deleted document still visible", "path", path, "attempt", attempt)
	}
	return &VerificationError{Path: path, Attempts: c.opts.DeleteAttempts}
}

// deleteOnce issues one delete and reports whether a read confirms absence.
func (c *Coordinator) deleteOnce(ctx context.Context, path string) (bool, error) {
	delCtx, cancel := c.callCtx(ctx)
	err := c.store.Delete(delCtx, path)
	cancel()
	if err != nil {
		return false, remoteErr("delete", path, err)
	}

	getCtx, cancel := c.callCtx(ctx)
	defer cancel()
	_, found, err := c.store.Get(getCtx, path)
	if err != nil {
		return false, remoteErr("get", path, err)
	}
	return !found, nil
}
