package handlers

import (
	"errors"

	"love-piece/internal/domain"
)

const (
	textHelp = "💌 ありがとうメッセージ\n\n" +
		"写真から感謝のメッセージを作ります。\n\n" +
		"1. 写真を送る (複数枚OK)\n" +
		"2. /relationship で相手との関係を選ぶ\n" +
		"3. /tone でトーンを選ぶ\n" +
		"4. /generate で作成\n\n" +
		"/occasion <シーン> - シーンを記録\n" +
		"/note <メモ> - メモを記録\n" +
		"/status - 現在の入力内容\n" +
		"/regenerate [casual|formal|poetic] - もう一度作る\n" +
		"/new - 最初からやり直す"

	textChooseTone          = "トーンを選んでください。"
	textChooseRelationship  = "メッセージを送る相手との関係を選んでください。"
	textToneSet             = "✅ トーン: %s"
	textRelationshipSet     = "✅ 関係: %s"
	textSaved               = "✅ 保存しました。"
	textCleared             = "✅ 入力内容をリセットしました。写真を送ってください。"
	textPhotosAdded         = "📷 %d枚追加しました (合計 %d枚)。"
	textNotReady            = "写真と関係を先に設定してください。/status で確認できます。"
	textGenerating          = "作成中..."
	textInvalidTone         = "❌ トーンは casual / formal / poetic から選んでください。"
	textUnknownRelationship = "❌ 不明な関係です。"
	textDownloadFailed      = "❌ 写真の読み込みに失敗しました。もう一度送ってください。"
	textUnknownCommand      = "❌ 不明なコマンドです。/help をご覧ください。"
	textUnknownInput        = "写真を送るか、/help でコマンドを確認してください。"

	textGenerationFailed = "❌ メッセージの作成に失敗しました。しばらくしてからもう一度お試しください。"
	textUnavailable      = "❌ 現在メッセージを作成できません。"
	textInvalidInput     = "❌ 入力内容を確認してください。"
	textInvalidImages    = "❌ 写真の形式が正しくありません。/new からやり直してください。"
	textMissingRelation  = "❌ 相手との関係を選んでください。/relationship"
)

// errorText maps a generation error to a chat reply without leaking
// configuration or upstream details.
func errorText(err error) string {
	switch domain.Classify(err) {
	case domain.KindValidation:
		var ve *domain.ValidationError
		errors.As(err, &ve)
		switch ve.Field {
		case "tone":
			return textInvalidTone
		case "relationship":
			return textMissingRelation
		case "imageData":
			return textInvalidImages
		}
		return textInvalidInput
	case domain.KindConfiguration:
		return textUnavailable
	}
	return textGenerationFailed
}
