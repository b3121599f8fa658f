package prompt

import "love-piece/internal/domain"

// CompletionGuard asks the model not to stop mid-sentence.
const CompletionGuard = `出力に関する注意:
- 文章を途中で途切れさせないこと
- 最後の文は必ず「。」「！」などの文末記号で終えること`

var toneTemplates = map[domain.Tone]string{
	domain.ToneCasual: `これらの写真に写っている人への感謝の気持ちを、親しみやすく温かいトーンで文章にしてください。

要件:
- カジュアルで親しみやすい表現を使う
- 「いつもありがとう」「一緒にいてくれて嬉しい」など、身近な言葉を使う
- 3〜5文程度の長さ
- 写真から読み取れる状況や雰囲気を踏まえる
- 複数の写真がある場合は、それぞれの思い出を織り交ぜる
- 感謝の気持ちが伝わるように`,

	domain.ToneFormal: `これらの写真に写っている人への感謝の気持ちを、丁寧でフォーマルなトーンで文章にしてください。

要件:
- 丁寧で礼儀正しい表現を使う
- 「お世話になっております」「心より感謝申し上げます」など、フォーマルな言葉を使う
- 3〜5文程度の長さ
- 写真から読み取れる状況や雰囲気を踏まえる
- 複数の写真がある場合は、それぞれの思い出を織り交ぜる
- 敬意と感謝の気持ちが伝わるように`,

	domain.TonePoetic: `これらの写真に写っている人への感謝の気持ちを、詩的で感情豊かなトーンで文章にしてください。

要件:
- 詩的で美しい表現を使う
- 比喩や情景描写を織り交ぜる
- 3〜5文程度の長さ
- 写真から読み取れる状況や雰囲気を踏まえる
- 複数の写真がある場合は、それぞれの思い出を織り交ぜる
- 深い感謝と愛情が伝わるように`,
}

// ToneInstruction returns the template for t.
func ToneInstruction(t domain.Tone) (string, bool) {
	s, ok := toneTemplates[t]
	return s, ok
}
