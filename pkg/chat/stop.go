// Copyright 2026 DataChat
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"errors"
	"sync"

	"github.com/datachat-io/datachat/pkg/types"
)

// ErrConversationBusy is returned when a conversation already has a loop
// running.
var ErrConversationBusy = errors.New("conversation is already running")

// StopRegistry tracks the run status of every conversation and carries
// cooperative stop requests from callers to the running loop. One loop per
// conversation may run at a time.
type StopRegistry struct {
	mu       sync.Mutex
	statuses map[string]types.Status
	onStatus func(types.StatusEvent)
}

// NewStopRegistry creates a registry. onStatus, when non-nil, is called for
// every status transition; it must not block.
func NewStopRegistry(onStatus func(types.StatusEvent)) *StopRegistry {
	return &StopRegistry{
		statuses: make(map[string]types.Status),
		onStatus: onStatus,
	}
}

// Begin marks the conversation as running. It fails with
// ErrConversationBusy when a loop is already active.
func (r *StopRegistry) Begin(conversationID string) error {
	r.mu.Lock()
	switch r.statuses[conversationID] {
	case types.StatusRunning, types.StatusToStop:
		r.mu.Unlock()
		return ErrConversationBusy
	}
	r.statuses[conversationID] = types.StatusRunning
	r.mu.Unlock()
	r.emit(conversationID, types.StatusRunning, "")
	return nil
}

// RequestStop asks the running loop to stop at its next checkpoint. It is
// a no-op for conversations that are not running.
func (r *StopRegistry) RequestStop(conversationID string) {
	r.mu.Lock()
	if r.statuses[conversationID] != types.StatusRunning {
		r.mu.Unlock()
		return
	}
	r.statuses[conversationID] = types.StatusToStop
	r.mu.Unlock()
	r.emit(conversationID, types.StatusToStop, "")
}

// ShouldStop reports whether a stop has been requested.
func (r *StopRegistry) ShouldStop(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[conversationID] == types.StatusToStop
}

// Status returns the conversation's current status.
func (r *StopRegistry) Status(conversationID string) types.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[conversationID]; ok {
		return s
	}
	return types.StatusClear
}

// End clears the conversation's status. A non-nil err transitions through
// the error status so subscribers see the failure. End always runs, error
// or not; the conversation is immediately runnable again.
func (r *StopRegistry) End(conversationID string, err error) {
	r.mu.Lock()
	delete(r.statuses, conversationID)
	r.mu.Unlock()
	if err != nil {
		r.emit(conversationID, types.StatusError, err.Error())
		return
	}
	r.emit(conversationID, types.StatusClear, "")
}

func (r *StopRegistry) emit(conversationID string, status types.Status, errText string) {
	if r.onStatus == nil {
		return
	}
	r.onStatus(types.StatusEvent{
		ConversationID: conversationID,
		Status:         status,
		Error:          errText,
	})
}
