package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"focusline/internal/app"
	"focusline/internal/assistant"
	"focusline/internal/server"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant (type 'exit' to leave)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return chatLoop(ctx, a, os.Stdin, os.Stdout)
			})
		},
	}
}

func chatLoop(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	s := a.Sessions.Open(server.LocalUser)
	defer a.Sessions.Close(s.ID)
	fmt.Fprintln(out, assistant.HelpText)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit":
			return nil
		}
		reply := a.Assistant.Handle(ctx, s, line)
		fmt.Fprintf(out, "focus> %s\n", reply.Message)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func sayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <message>",
		Short: "Send one message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				reply := a.Assistant.Handle(ctx, nil, strings.Join(args, " "))
				if viper.GetBool("json") {
					return printJSON(reply)
				}
				fmt.Println(reply.Message)
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				if basePath == "" {
					basePath = a.Config.Server.BasePath
				}
				secret := viper.GetString("jwt-secret")
				if secret == "" {
					secret = a.Config.Server.JWTSecret
				}
				if secret == "" {
					a.Logger.Warn("no JWT secret configured; API requests run unauthenticated as " + server.LocalUser)
				}
				handler, err := server.New(server.Config{
					Engine:    a.Engine,
					Assistant: a.Assistant,
					Sessions:  a.Sessions,
					BasePath:  basePath,
					Auth:      server.AuthConfig{JWTSecret: secret, Logger: a.Logger},
					Logger:    a.Logger,
				})
				if err != nil {
					return err
				}
				return serve(ctx, &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}, a.Logger, basePath)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from server.base_path)")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger, basePath string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving Focusline API", zap.String("addr", srv.Addr), zap.String("base_path", basePath))
		fmt.Printf("Serving Focusline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", srv.Addr, basePath, basePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
