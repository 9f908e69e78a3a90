package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session lifecycle (info)
		"Playing %s": "%s を再生中",
		"Opened %s: %s stream %d (%s %dx%d, time base %s)":     "%s を開きました: %s ストリーム %d (%s %dx%d, タイムベース %s)",
		"Video stream %d: %s %dx%d, time base %s":              "映像ストリーム %d: %s %dx%d, タイムベース %s",
		"Playback finished (%s) after %d frames":               "再生終了 (%s): %d フレーム",
		"Delivered %d frames in %s (%d late, max lateness %s)": "%d フレームを %s で出力 (遅延 %d, 最大遅延 %s)",
		"Summary saved to %s":                                  "サマリーを %s に保存しました",
		"Wrote %d frames to %s":                                "%d フレームを %s に書き込みました",
		"Interrupted, shutting down...":                        "中断されました。シャットダウン中...",

		// Probe and decode detail (debug)
		"Stream %d: %s %s %dx%d":            "ストリーム %d: %s %s %dx%d",
		"Selected stream %d (%s) out of %d": "ストリーム %d (%s) を選択 (全 %d)",
		"Submitted packet pts=%d size=%d":   "パケット送信 pts=%d size=%d",
		"Flushing decoder":                  "デコーダをフラッシュ中",
		"Decoder drained after %d frames":   "デコーダが %d フレームで空になりました",
		"Frame pts %d presented %s late":    "フレーム pts %d が %s 遅れて表示されました",

		// Warnings
		"Frame pts %d precedes previous pts %d":       "フレーム pts %d が直前の pts %d より前です",
		"Stream %d (%s) is only partly supported: %s": "ストリーム %d (%s) は一部のみ対応しています: %s",

		// Errors
		"Failed to write summary: %s": "サマリーの書き込みに失敗しました: %s",
		"Playback stopped: %v":        "再生を中止しました: %v",
	})
}
