package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/companion/orchestrator"
	"github.com/maastricht-university/companion/router"
)

var (
	chatUser  string
	chatSpeak bool
	chatAudio string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Reads messages from stdin and prints the assistant's replies. Type exit, quit or
bye to leave.

With --speak, pressing enter on an empty line records a microphone clip and sends its
transcript instead. With --audio, a recorded clip is transcribed and sent once.`,
	RunE: runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVarP(&chatUser, "user", "u", router.DefaultUserID, "user id for the routine store")
	f.BoolVar(&chatSpeak, "speak", false, "record speech from the microphone on empty input")
	f.StringVar(&chatAudio, "audio", "", "path to a wav clip to transcribe and send")
}

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p := orchestrator.NewPipeline(conf, log, orchestrator.Options{})
	if err := p.Start(ctx); err != nil {
		log.WithError(err).Warn("emotion fusion unavailable, chatting without emotional context")
	}
	defer p.Stop()

	out := cmd.OutOrStdout()
	send := func(msg string) {
		resp, err := p.Handle(ctx, router.Request{UserID: chatUser, Message: msg})
		if errors.Is(err, router.ErrEmptyInput) {
			return
		}
		if err != nil {
			fmt.Fprintln(out, "Assistant: (error)", err)
			return
		}
		fmt.Fprintln(out, "Assistant:", resp.Text)
	}

	if chatAudio != "" {
		clip, err := os.ReadFile(chatAudio)
		if err != nil {
			return errors.Wrap(err, "read audio")
		}
		text, err := p.TranscribeClip(ctx, clip)
		if err != nil {
			return errors.Wrap(err, "transcribe")
		}
		fmt.Fprintln(out, "You (audio):", text)
		send(text)
		return nil
	}

	return chatLoop(cmd.InOrStdin(), out, func(line string) {
		if line == "" && chatSpeak {
			fmt.Fprintln(out, "Listening...")
			text, err := p.Transcribe(ctx)
			if err != nil {
				fmt.Fprintln(out, "Could not transcribe:", err)
				return
			}
			fmt.Fprintln(out, "You (spoken):", text)
			line = text
		}
		send(line)
	})
}

// chatLoop prompts for lines until EOF or an exit word.
func chatLoop(in io.Reader, out io.Writer, handle func(string)) error {
	sc := bufio.NewScanner(in)
	fmt.Fprintln(out, "Type 'exit' to end the conversation.")
	for {
		fmt.Fprint(out, "You: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if exitWords[strings.ToLower(line)] {
			fmt.Fprintln(out, "Assistant: Goodbye! Take care.")
			return nil
		}
		handle(line)
	}
}
