package dispatch

import (
	"github.com/m3rciful/tubebot/bot/session"
)

const (
	textMenu         = "💎 *Welcome to Tube Helper Bot!*\n\nSelect an option below ⬇️"
	textMenuAgain    = "📌 *Menu:* Choose an option below."
	textJoinPrompt   = "🔒 To use this bot, please join our channel first:\n👉 "
	textAskLink      = "🔗 Send me a YouTube video link."
	textAskKeyword   = "🎯 Send me a keyword and I'll suggest 5 video title ideas."
	textInvalidLink  = "⚠️ That doesn't look like a valid YouTube video link."
	textNoAction     = "ℹ️ Please select an option via /start first."
	textFetchFailed  = "❌ Failed to fetch video info: "
	textGenFailed    = "❌ Something went wrong. Try again later."
	textIdeasHeader  = "🎯 Top Topic Ideas for: "
	textDownloadStub = "🚀 Downloading your video... (Feature coming soon!)"
	buttonJoin       = "📢 Join channel"
	buttonRecheck    = "🔄 Check again"
	buttonBack       = "⬅️ Back to menu"
	buttonDownload   = "📥 Download Video"
	buttonTitle      = "🎬 Get Title"
	buttonTags       = "🏷 Get Tags"
	buttonHashtags   = "#️⃣ Get Hashtags"
	buttonTopicIdeas = "🎯 Topic Ideas"
)

var actionLabels = map[session.Action]string{
	session.ActionTitle:      buttonTitle,
	session.ActionTags:       buttonTags,
	session.ActionHashtags:   buttonHashtags,
	session.ActionTopicIdeas: buttonTopicIdeas,
}

func menuButtons() [][]Button {
	return [][]Button{
		{{Text: buttonTitle, Data: ActionData(string(session.ActionTitle))}},
		{
			{Text: buttonTags, Data: ActionData(string(session.ActionTags))},
			{Text: buttonHashtags, Data: ActionData(string(session.ActionHashtags))},
		},
		{{Text: buttonTopicIdeas, Data: ActionData(string(session.ActionTopicIdeas))}},
		{{Text: buttonDownload, Data: DataDownload}},
	}
}

func menuReply(edit bool) Reply {
	return Reply{Text: textMenu, Markdown: true, Edit: edit, Buttons: menuButtons()}
}

func menuAgainReply() Reply {
	return Reply{Text: textMenuAgain, Markdown: true, Buttons: menuButtons()}
}

func joinReply(joinURL string, edit bool) Reply {
	return Reply{
		Text: textJoinPrompt + joinURL,
		Edit: edit,
		Buttons: [][]Button{
			{{Text: buttonJoin, URL: joinURL}},
			{{Text: buttonRecheck, Data: DataRecheck}},
		},
	}
}

func promptReply(action session.Action) Reply {
	text := textAskLink
	if action == session.ActionTopicIdeas {
		text = textAskKeyword
	}
	return Reply{
		Text:    actionLabels[action] + "\n\n" + text,
		Edit:    true,
		Buttons: [][]Button{{{Text: buttonBack, Data: DataMenu}}},
	}
}

func plain(text string) Reply {
	return Reply{Text: text}
}
