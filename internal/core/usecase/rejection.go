package usecase

import "strings"

// rejectionPhrases mark answers where the model declined an off-topic question.
var rejectionPhrases = []string{
	"can only help with bafög",
	"can only assist with bafög",
	"only answer questions related to bafög",
	"kann nur bei bafög",
	"kann nur fragen zu bafög",
	"ausschließlich für bafög",
	"nur bafög-fragen",
}

func IsRejection(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range rejectionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
