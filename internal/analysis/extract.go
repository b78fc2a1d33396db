package analysis

import (
	"strings"

	"tweetminer/internal/model"
)

// Hashtags counts whitespace tokens of the cleaned text that contain '#'.
func Hashtags(records []model.Record) *Counter {
	return tokensContaining(records, "#")
}

// Mentions counts whitespace tokens of the cleaned text that contain '@'.
func Mentions(records []model.Record) *Counter {
	return tokensContaining(records, "@")
}

func tokensContaining(records []model.Record, marker string) *Counter {
	c := NewCounter()
	for _, r := range records {
		for _, tok := range strings.Fields(Clean(r.Text())) {
			if strings.Contains(tok, marker) {
				c.Add(tok)
			}
		}
	}
	return c
}

// Sources counts the client each tweet was posted from.
func Sources(records []model.Record) *Counter {
	c := NewCounter()
	for _, r := range records {
		if s := r.Source(); s != "" {
			c.Add(s)
		}
	}
	return c
}

// Days counts tweets per created_at date.
func Days(records []model.Record) *Counter {
	c := NewCounter()
	for _, r := range records {
		if d := r.Day(); d != "" {
			c.Add(d)
		}
	}
	return c
}

// Authors counts tweets per author id.
func Authors(records []model.Record) *Counter {
	c := NewCounter()
	for _, r := range records {
		if id := r.AuthorID(); id != "" {
			c.Add(id)
		}
	}
	return c
}

// Words counts every token of every tweet.
func Words(records []model.Record) *Counter {
	c := NewCounter()
	for _, r := range records {
		c.AddAll(Tokens(r.Text()))
	}
	return c
}

// Keywords counts tokens left after stopword filtering.
func Keywords(records []model.Record, sw Stopwords) *Counter {
	c := NewCounter()
	for _, r := range records {
		c.AddAll(sw.Keywords(Tokens(r.Text())))
	}
	return c
}
