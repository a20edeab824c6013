package queue

import "encoding/json"

type Kind string

const (
	KindPaired     Kind = "paired"
	KindQueued     Kind = "queued"
	KindLeft       Kind = "left"
	KindNotInQueue Kind = "not_in_queue"
)

// Result — ответ движка. ChatID заполнен только для KindPaired, Position —
// для остальных видов.
type Result struct {
	Kind     Kind
	ChatID   string
	Position int
}

func Paired(chatID string) Result { return Result{Kind: KindPaired, ChatID: chatID} }
func Queued(position int) Result  { return Result{Kind: KindQueued, Position: position} }
func Left() Result                { return Result{Kind: KindLeft} }
func NotInQueue() Result          { return Result{Kind: KindNotInQueue} }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Kind == KindPaired {
		return json.Marshal(struct {
			Status Kind   `json:"status"`
			ChatID string `json:"chatId"`
		}{r.Kind, r.ChatID})
	}
	return json.Marshal(struct {
		Status   Kind `json:"status"`
		Position int  `json:"position"`
	}{r.Kind, r.Position})
}
