package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "http://localhost:8080"

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	global := flag.NewFlagSet("moviehub", flag.ExitOnError)
	baseURL := global.String("api", envOr("MOVIEHUB_API", defaultBaseURL), "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	api := &apiClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: *baseURL + "/api",
	}

	switch cmd {
	case "auth":
		handleAuth(ctx, api, *tokenPath, sub, rest)
	case "movies":
		handleMovies(ctx, api, sub, rest)
	case "reviews":
		handleReviews(ctx, api, *tokenPath, sub, rest)
	case "watchlist":
		handleWatchlist(ctx, api, *tokenPath, sub, rest)
	case "lookup":
		handleLookup(ctx, api, sub, rest)
	case "events":
		handleEvents(*baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := api.do(ctx, http.MethodPost, "/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, tokenData{Token: resp.Token, UserID: resp.User.ID}); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("logged in as %s\n", resp.User.Username)
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := api.do(ctx, http.MethodPost, "/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, tokenData{Token: resp.Token, UserID: resp.User.ID}); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		// revoke server side when we still hold a token
		if td, err := readToken(tokenPath); err == nil && td.Token != "" {
			if err := api.do(ctx, http.MethodPost, "/auth/logout", td.Token, nil, nil); err != nil {
				log.WithError(err).Warn("server logout failed")
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: moviehub auth <login|register|logout>")
	}
}

func handleMovies(ctx context.Context, api *apiClient, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("movies list", flag.ExitOnError)
		search := fs.String("search", "", "title search")
		genre := fs.String("genre", "", "genre filter")
		year := fs.Int("year", 0, "release year")
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 10, "page size")
		_ = fs.Parse(args)

		qv := url.Values{}
		setIf(qv, "search", *search)
		setIf(qv, "genre", *genre)
		if *year > 0 {
			qv.Set("year", strconv.Itoa(*year))
		}
		qv.Set("page", strconv.Itoa(*page))
		qv.Set("limit", strconv.Itoa(*limit))

		var resp map[string]any
		if err := api.do(ctx, http.MethodGet, "/movies?"+qv.Encode(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "get":
		fs := flag.NewFlagSet("movies get", flag.ExitOnError)
		id := fs.String("id", "", "movie id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("movie id is required")
		}

		var resp map[string]any
		if err := api.do(ctx, http.MethodGet, "/movies/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("get failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub movies <list|get>")
	}
}

func handleReviews(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("reviews list", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id (empty for the feed)")
		page := fs.Int("page", 1, "feed page")
		_ = fs.Parse(args)

		path := "/reviews?page=" + strconv.Itoa(*page)
		if *movieID != "" {
			path = "/reviews/" + url.PathEscape(*movieID)
		}
		var resp any
		if err := api.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		td := mustToken(tokenPath)
		fs := flag.NewFlagSet("reviews add", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		rating := fs.Int("rating", 0, "rating 1-5")
		text := fs.String("text", "", "review text")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		payload := map[string]any{"rating": *rating, "reviewText": *text}
		var resp any
		if err := api.do(ctx, http.MethodPost, "/reviews/"+url.PathEscape(*movieID), td.Token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "edit":
		td := mustToken(tokenPath)
		fs := flag.NewFlagSet("reviews edit", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		rating := fs.Int("rating", 0, "new rating 1-5 (0 keeps the old one)")
		text := fs.String("text", "", "new review text (empty keeps the old one)")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		payload := map[string]any{}
		if *rating != 0 {
			payload["rating"] = *rating
		}
		if *text != "" {
			payload["reviewText"] = *text
		}
		var resp any
		if err := api.do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(*id), td.Token, payload, &resp); err != nil {
			log.Fatalf("edit failed: %v", err)
		}
		printJSON(resp)
	case "rm":
		td := mustToken(tokenPath)
		fs := flag.NewFlagSet("reviews rm", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		if err := api.do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(*id), td.Token, nil, nil); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		fmt.Println("review removed")
	default:
		log.Fatal("usage: moviehub reviews <list|add|edit|rm>")
	}
}

func handleWatchlist(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	td := mustToken(tokenPath)
	base := "/watchlist/" + url.PathEscape(td.UserID)

	switch sub {
	case "list":
		var resp any
		if err := api.do(ctx, http.MethodGet, base, td.Token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("watchlist add", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		var resp any
		if err := api.do(ctx, http.MethodPost, base, td.Token, map[string]string{"movieId": *movieID}, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "rm":
		fs := flag.NewFlagSet("watchlist rm", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		if err := api.do(ctx, http.MethodDelete, base+"/"+url.PathEscape(*movieID), td.Token, nil, nil); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		fmt.Println("removed from watchlist")
	default:
		log.Fatal("usage: moviehub watchlist <list|add|rm>")
	}
}

func handleLookup(ctx context.Context, api *apiClient, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("lookup search", flag.ExitOnError)
		query := fs.String("q", "", "search text")
		genre := fs.String("genre", "", "genre hint")
		year := fs.Int("year", 0, "release year")
		page := fs.Int("page", 1, "result page")
		_ = fs.Parse(args)
		if *query == "" {
			log.Fatal("-q is required")
		}

		qv := url.Values{}
		qv.Set("search", *query)
		setIf(qv, "genre", *genre)
		if *year > 0 {
			qv.Set("year", strconv.Itoa(*year))
		}
		qv.Set("page", strconv.Itoa(*page))

		var resp any
		if err := api.do(ctx, http.MethodGet, "/lookup?"+qv.Encode(), "", nil, &resp); err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		printJSON(resp)
	case "id":
		fs := flag.NewFlagSet("lookup id", flag.ExitOnError)
		id := fs.String("imdb", "", "IMDb id (tt...)")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("-imdb is required")
		}

		var resp any
		if err := api.do(ctx, http.MethodGet, "/lookup/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub lookup <search|id>")
	}
}

func handleEvents(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("events listen", flag.ExitOnError)
		tcpAddr := fs.String("tcp", "", "TCP event server address (default: websocket)")
		_ = fs.Parse(args)

		if *tcpAddr != "" {
			if err := runTCP(*tcpAddr); err != nil {
				log.Fatalf("tcp listen failed: %v", err)
			}
			return
		}
		wsURL, err := websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		if err := runWebSocket(wsURL); err != nil {
			log.Fatalf("websocket failed: %v", err)
		}
	default:
		log.Fatal("usage: moviehub events listen [-tcp addr]")
	}
}

func setIf(qv url.Values, key, val string) {
	if val != "" {
		qv.Set(key, val)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printUsage() {
	fmt.Println("moviehub [-api url] [-token path] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  movies list|get")
	fmt.Println("  reviews list|add|edit|rm")
	fmt.Println("  watchlist list|add|rm")
	fmt.Println("  lookup search|id")
	fmt.Println("  events listen")
}
