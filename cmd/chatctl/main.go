// Command chatctl drives the chat service from a terminal: sign in with an
// ID token, post text or an image, follow the recent-messages window and
// sign out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"friendlychat/backend/internal/bootstrap"
	"friendlychat/backend/internal/config"
	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
)

type navLogger struct{}

func (navLogger) Navigate(route chat.Route) {
	log.Printf("view: %s", route)
}

func main() {
	token := flag.String("token", "", "Firebase ID token to sign in with")
	send := flag.String("send", "", "text message to post")
	imagePath := flag.String("image", "", "image file to post")
	tail := flag.Bool("tail", false, "print the recent messages until interrupted")
	logout := flag.Bool("logout", false, "sign out before exiting")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}
	defer backends.Close()

	svc := backends.NewService(cfg, navLogger{})
	defer svc.Close()

	if *token != "" {
		s, err := svc.Login(ctx, identity.Credential{IDToken: *token})
		if err != nil {
			log.Fatalf("login: %v", err)
		}
		fmt.Printf("signed in as %s (%s)\n", s.UID, s.Name())
	}

	if *send != "" {
		ref, err := svc.SaveTextMessage(ctx, *send)
		if err != nil {
			log.Fatalf("send: %v", err)
		}
		fmt.Println("ok:", ref.Path)
	}

	if *imagePath != "" {
		if err := postImage(ctx, svc, *imagePath); err != nil {
			log.Fatalf("image: %v", err)
		}
	}

	if *tail {
		if err := tailMessages(ctx, svc); err != nil {
			log.Printf("tail: %v", err)
		}
	}

	if *logout {
		if err := svc.Logout(context.Background()); err != nil {
			log.Fatalf("logout: %v", err)
		}
		fmt.Println("signed out")
	}
}

func postImage(ctx context.Context, svc *chat.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ref, err := svc.SaveImageMessage(ctx, chat.ImageUpload{FileName: f.Name(), Body: f})
	if err != nil {
		return err
	}
	fmt.Println("ok:", ref.Path)
	return nil
}

func tailMessages(ctx context.Context, svc *chat.Service) error {
	enc := json.NewEncoder(os.Stdout)
	sub, err := svc.LoadMessages(ctx, func(batch []messages.Message) {
		if err := enc.Encode(batch); err != nil {
			log.Printf("tail: encode: %v", err)
		}
	})
	if err != nil {
		return err
	}
	defer sub.UnsubscribeWait()

	select {
	case <-ctx.Done():
		return nil
	case <-sub.Done():
		return sub.Err()
	}
}
