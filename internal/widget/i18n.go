package widget

// Lang is one of the two widget languages.
type Lang string

const (
	LangFR Lang = "fr"
	LangEN Lang = "en"
)

// Strings is the localized copy shown by the widget.
type Strings struct {
	Placeholder      string
	Send             string
	Close            string
	Open             string
	PoweredBy        string
	Error            string
	NewChat          string
	LongConversation string
	HumanAgent       string
	AIAssistant      string
	Offline          string
	StartChat        string
	LeadPrompt       string
	AwayDefault      string
	RateTitle        string
	RateComment      string
	RateSubmit       string
	RateSkip         string
	RateThanks       string
	TranscriptTitle  string
	TranscriptSend   string
	TranscriptSent   string
	TranscriptError  string
	InvalidFileType  string
	FileTooLarge     string
	UploadFailed     string
}

var translations = map[Lang]Strings{
	LangFR: {
		Placeholder:      "Ecrivez votre message...",
		Send:             "Envoyer",
		Close:            "Fermer",
		Open:             "Ouvrir le chat",
		PoweredBy:        "Propulsé par",
		Error:            "Désolé, je rencontre un problème technique. Veuillez réessayer.",
		NewChat:          "Nouvelle conversation",
		LongConversation: "La conversation devient longue. Cliquez sur + pour démarrer une nouvelle conversation.",
		HumanAgent:       "Conseiller en ligne",
		AIAssistant:      "Assistant IA",
		Offline:          "Hors ligne",
		StartChat:        "Démarrer le chat",
		LeadPrompt:       "Présentez-vous pour démarrer le chat",
		AwayDefault:      "Nous sommes actuellement indisponibles. Laissez-nous un message et nous vous recontacterons.",
		RateTitle:        "Comment était votre expérience?",
		RateComment:      "Un commentaire? (optionnel)",
		RateSubmit:       "Envoyer",
		RateSkip:         "Passer",
		RateThanks:       "Merci pour votre retour!",
		TranscriptTitle:  "Recevoir la transcription par email",
		TranscriptSend:   "Envoyer",
		TranscriptSent:   "Email envoyé!",
		TranscriptError:  "Erreur d'envoi",
		InvalidFileType:  "Veuillez choisir une image",
		FileTooLarge:     "Image trop volumineuse. Taille max : 10 Mo",
		UploadFailed:     "Échec de l'envoi de l'image",
	},
	LangEN: {
		Placeholder:      "Type your message...",
		Send:             "Send",
		Close:            "Close",
		Open:             "Open chat",
		PoweredBy:        "Powered by",
		Error:            "Sorry, I'm having a technical issue. Please try again.",
		NewChat:          "New conversation",
		LongConversation: "Conversation is getting long. Click + to start a fresh chat.",
		HumanAgent:       "Live Agent",
		AIAssistant:      "AI Assistant",
		Offline:          "Offline",
		StartChat:        "Start Chat",
		LeadPrompt:       "Please introduce yourself to start chatting",
		AwayDefault:      "We are currently unavailable. Leave us a message and we will get back to you.",
		RateTitle:        "How was your experience?",
		RateComment:      "Any comments? (optional)",
		RateSubmit:       "Submit",
		RateSkip:         "Skip",
		RateThanks:       "Thanks for your feedback!",
		TranscriptTitle:  "Get transcript via email",
		TranscriptSend:   "Send",
		TranscriptSent:   "Email sent!",
		TranscriptError:  "Send failed",
		InvalidFileType:  "Please select an image file",
		FileTooLarge:     "Image too large. Max size: 10MB",
		UploadFailed:     "Image upload failed",
	},
}

// T returns the copy for lang, falling back to French.
func T(lang Lang) Strings {
	if s, ok := translations[lang]; ok {
		return s
	}
	return translations[LangFR]
}

const (
	defaultWelcomeFR = "Bonjour! Comment puis-je vous aider?"
	defaultWelcomeEN = "Hello! How can I help you?"
)

// QuickAction is a one-tap suggestion whose Message is sent verbatim.
type QuickAction struct {
	Icon    string
	Label   string
	Message string
}

// QuickActions returns the suggestions for lang.
func QuickActions(lang Lang) []QuickAction {
	if lang == LangEN {
		return []QuickAction{
			{Icon: "❓", Label: "View FAQ", Message: "Can you show me your frequently asked questions?"},
			{Icon: "📅", Label: "Book Appointment", Message: "I would like to book an appointment"},
		}
	}
	return []QuickAction{
		{Icon: "❓", Label: "Voir FAQ", Message: "Pouvez-vous me montrer les questions fréquentes?"},
		{Icon: "📅", Label: "Prendre RDV", Message: "Je voudrais prendre un rendez-vous"},
	}
}

// Emojis is the fixed picker palette.
var Emojis = []string{
	"😊", "😂", "❤️", "👍", "🙏", "😍", "🎉", "🔥",
	"✨", "💯", "👏", "🤔", "😅", "😎", "🥰", "💪",
	"🙌", "✅", "📅", "📞", "✉️", "💼", "🏠", "🚀",
}
