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
package types

// Status describes the lifecycle of an in-flight conversation operation,
// as reported to the caller on every phase transition.
type Status string

const (
	// StatusRunning - a driving operation (ask, query, regenerate) started.
	StatusRunning Status = "running"

	// StatusClear - the operation finished and the stop flag was released.
	StatusClear Status = "clear"

	// StatusToStop - a stop was requested; the loop will halt at the next
	// step boundary.
	StatusToStop Status = "to_stop"

	// StatusError - the operation failed.
	StatusError Status = "error"
)

// StatusEvent is emitted to the calling context on each phase transition.
type StatusEvent struct {
	ConversationID string `json:"conversation_id"`
	Status         Status `json:"status"`
	Error          string `json:"error,omitempty"`
}
