package stt

import (
	"bytes"
	"context"
	"errors"

	"github.com/charmbracelet/log"
	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

// Deepgram sends each segment to the prerecorded endpoint as a WAV file.
type Deepgram struct {
	token  string
	model  string
	logger *log.Logger
}

func NewDeepgram(token, model string, logger *log.Logger) *Deepgram {
	if model == "" {
		model = "nova-2"
	}
	return &Deepgram{
		token:  token,
		model:  model,
		logger: logger,
	}
}

func (d *Deepgram) Transcribe(
	ctx context.Context,
	seg *snd.Segment,
	locale string,
) (string, error) {
	dg := api.New(client.NewREST(d.token, &interfaces.ClientOptions{}))
	tOptions := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    locale,
		Punctuate:   true,
		SmartFormat: true,
	}

	res, err := dg.FromStream(ctx, bytes.NewReader(snd.EncodeWAV(seg)), tOptions)
	if err != nil {
		return "", fault.Service("deepgram", err)
	}
	if res == nil || res.Results == nil {
		return "", fault.Service("deepgram", errors.New("response has no results"))
	}
	if len(res.Results.Channels) == 0 ||
		len(res.Results.Channels[0].Alternatives) == 0 {
		return result("deepgram", "")
	}

	alt := res.Results.Channels[0].Alternatives[0]
	d.logger.Debug("hear",
		"txt", alt.Transcript,
		"confidence", alt.Confidence,
		"locale", locale,
	)
	return result("deepgram", alt.Transcript)
}
