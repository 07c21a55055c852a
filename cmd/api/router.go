package main

import (
	"net/http"

	"booklend/internal/catalog"
	"booklend/internal/lending"
)

type routerDeps struct {
	books   *catalog.HTTPHandler
	lending *lending.HTTPHandler
	gate    func(http.Handler) http.Handler
	ready   http.HandlerFunc
}

func newRouter(deps routerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", home)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", deps.ready)

	mux.HandleFunc("GET /allBooks", deps.books.List)
	mux.HandleFunc("GET /allBooks/{id}", deps.books.GetByID)
	mux.HandleFunc("GET /topRatingBooks", deps.books.TopRated)
	mux.Handle("POST /addBooks", deps.gate(http.HandlerFunc(deps.books.Insert)))
	mux.Handle("PATCH /updateBook/{id}", deps.gate(http.HandlerFunc(deps.books.Update)))

	mux.HandleFunc("GET /borrowedBooksInfo", deps.lending.ListAll)
	mux.HandleFunc("GET /borrowedBooks/{email}", deps.lending.ListForUser)
	mux.HandleFunc("POST /addBorrowedBookInfo", deps.lending.Borrow)
	mux.HandleFunc("DELETE /deleteBorrowedBook/{id}", deps.lending.Return)

	// Everything unmatched gets the markup 404, not the ServeMux default.
	mux.HandleFunc("/", notFound)

	return mux
}

func home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<h1>This is a cool 📖 book collection!</h1>`))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`<div style="padding-top: 20px; text-align:center;">
<h1 style="color: #ff735c">⚠️ Page Not Found!</h1>
<a style="color:blue;" href='/'>Back Home</a>
</div>`))
}
