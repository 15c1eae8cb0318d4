// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizerService は投稿メッセージをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 掲示板の投稿はプレーンテキストとして扱うため、
// bluemondayのStrictPolicyで全てのHTMLタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService は投稿メッセージのサニタイズ機能のインターフェースを定義する。
// 投稿の保存前に使用される。
type MessageSanitizerService interface {
	// Sanitize はメッセージから全てのHTMLタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除かれる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。投稿はHTMLではなく
// プレーンテキストとしてレンダリングされる前提のため、
// タグの許可リストは持たない。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージから全てのHTMLタグを除去したプレーンテキストを返す。
// bluemondayはエンティティをエスケープして返すため、
// 表示用の素のテキストに戻してから返す。
func (s *messageSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
