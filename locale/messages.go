package locale

import (
	"strconv"
	"strings"
)

// Message keys.
const (
	MsgTitle        = "title"
	MsgBlocks       = "blocks"
	MsgJavaScript   = "javascript"
	MsgXML          = "xml"
	MsgBadXML       = "badXml"
	MsgBadCode      = "badCode"
	MsgTimeout      = "timeout"
	MsgDiscard      = "discard"
	MsgRunTooltip   = "runTooltip"
	MsgTrashTooltip = "trashTooltip"
	MsgLinkTooltip  = "linkTooltip"
)

var catalogs = map[string]map[string]string{
	"en": {
		MsgTitle:        "Code",
		MsgBlocks:       "Blocks",
		MsgJavaScript:   "JavaScript",
		MsgXML:          "XML",
		MsgBadXML:       "Error parsing XML:\n%1\n\nSelect 'OK' to abandon your changes or 'Cancel' to further edit the XML.",
		MsgBadCode:      "Program error:\n%1",
		MsgTimeout:      "Maximum execution iterations exceeded.",
		MsgDiscard:      "Delete all %1 blocks?",
		MsgRunTooltip:   "Run the program defined by the blocks in the workspace.",
		MsgTrashTooltip: "Discard all blocks.",
		MsgLinkTooltip:  "Save and link to blocks.",
	},
	"ja": {
		MsgTitle:        "コード",
		MsgBlocks:       "ブロック",
		MsgBadXML:       "XMLのエラーです:\n%1\n\nXMLの変更をやめるには「OK」、編集を続けるには「キャンセル」を選んでください。",
		MsgBadCode:      "プログラムのエラー:\n%1",
		MsgTimeout:      "命令の実行回数が制限値を超えました。",
		MsgDiscard:      "%1 個すべてのブロックを消しますか？",
		MsgRunTooltip:   "ブロックで作ったプログラムを実行します。",
		MsgTrashTooltip: "すべてのブロックを消します。",
		MsgLinkTooltip:  "ブロックの状態を保存してリンクを取得します。",
	},
}

// Messages holds the user-facing strings of one language.
type Messages struct {
	lang string
}

// MessagesFor returns the strings for lang. Keys without a translation
// fall back to English.
func MessagesFor(lang string) Messages {
	return Messages{lang: lang}
}

// Lang returns the language the messages were requested for.
func (m Messages) Lang() string {
	return m.lang
}

// Get returns the message for key with %1, %2, ... replaced by args.
// Unknown keys return the key itself.
func (m Messages) Get(key string, args ...string) string {
	text, ok := catalogs[m.lang][key]
	if !ok {
		if text, ok = catalogs["en"][key]; !ok {
			text = key
		}
	}
	for i := len(args); i > 0; i-- {
		text = strings.ReplaceAll(text, "%"+strconv.Itoa(i), args[i-1])
	}
	return text
}

// Translated reports whether lang has its own catalog.
func Translated(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}
