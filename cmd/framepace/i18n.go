// Package main provides localization for the framepace CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Decode video files into paced RGBA frames": "動画ファイルをペース制御された RGBA フレームにデコード",
		"YAML configuration file":                   "YAML 設定ファイル",
		"Log level (debug, info, warn, error)":      "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                   "全てのログ出力を抑制",
		"Error: %s":                                 "エラー: %s",

		// Play command
		"Decode a video and deliver its frames in real time": "動画をデコードしフレームを実時間で出力",
		"Pixel conversion (grayscale, color)":                "画素変換（grayscale, color）",
		"Deliver frames as fast as they decode":              "デコードでき次第フレームを出力",
		"Stop after this many frames (0 = all)":              "指定フレーム数で停止（0 = 全て）",
		"Frame output (null, png, sheet)":                    "フレーム出力先（null, png, sheet）",
		"Output directory for png, file for sheet":           "png の出力ディレクトリ、sheet の出力ファイル",
		"Scale output frames to this width":                  "出力フレームをこの幅に縮小",
		"Keep one frame out of every N":                      "N フレームごとに 1 フレームを保存",
		"Write a playback summary to this file":              "再生サマリーをこのファイルに出力",
		"Summary format (markdown, json)":                    "サマリー形式（markdown, json）",
		"Exactly one input file is required":                 "入力ファイルを 1 つ指定してください",

		// Probe command
		"Show the streams of one or more files": "ファイルのストリーム情報を表示",
		"Files probed in parallel":              "並列に調べるファイル数",
		"At least one input file is required":   "入力ファイルを 1 つ以上指定してください",
		"%d of %d files could not be opened":    "%d / %d ファイルを開けませんでした",
		"FILE":                                  "ファイル",
		"CONTAINER":                             "コンテナ",
		"STREAMS":                               "ストリーム",
		"VIDEO":                                 "映像",
		"TIME BASE":                             "タイムベース",
		"NOTES":                                 "備考",
		"key frames only":                       "キーフレームのみ",

		// Synth command
		"Generate a Motion-JPEG test clip":             "Motion-JPEG のテスト動画を生成",
		"Frame width":                                  "フレーム幅",
		"Frame height":                                 "フレーム高さ",
		"Number of frames":                             "フレーム数",
		"Frames per second":                            "毎秒フレーム数",
		"Encode grayscale JPEGs":                       "グレースケール JPEG でエンコード",
		"Draw flat gray frames instead of a test card": "テストパターンの代わりに単色グレーを描画",
		"Add a silent audio track (MP4 only)":          "無音の音声トラックを追加（MP4 のみ）",
		"Write MP4 without movie fragments":            "ムービーフラグメントを使わずに MP4 を書き出す",
		"Exactly one output file is required":          "出力ファイルを 1 つ指定してください",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framepace version %s":     "framepace バージョン %s",

		// Summary content
		"Playback Summary":    "再生サマリー",
		"Generated":           "生成日時",
		"Item":                "項目",
		"Value":               "値",
		"Input":               "入力",
		"File":                "ファイル",
		"Streams":             "ストリーム数",
		"Video Stream":        "映像ストリーム",
		"Index":               "番号",
		"Codec":               "コーデック",
		"Size":                "サイズ",
		"Time base":           "タイムベース",
		"Playback":            "再生",
		"Mode":                "モード",
		"paced":               "ペース制御あり",
		"unpaced":             "ペース制御なし",
		"Frames delivered":    "出力フレーム数",
		"Frames decoded":      "デコードフレーム数",
		"Packets read":        "読み込みパケット数",
		"Packets discarded":   "破棄パケット数",
		"Media duration":      "メディア再生時間",
		"Wall duration":       "実経過時間",
		"Late frames":         "遅延フレーム数",
		"Max lateness":        "最大遅延",
		"Mean lateness":       "平均遅延",
		"Out-of-order frames": "順序逆転フレーム数",
	})
}
