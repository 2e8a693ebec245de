package cotacao

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dimchansky/utfbom"
	cookiejar "github.com/orirawlings/persistent-cookiejar"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Session is the plain-HTTP side of the engine: the public-data fallback
// and remote pair lists go through it instead of the browser. It also
// records fetched bodies to disk so tests can replay them offline.
type Session struct {
	Name               string // directory name to store session files (downloaded bodies and cookies)
	client             http.Client
	Encoding           encoding.Encoding // force charset over the Content-Type response header
	UserAgent          string
	FilePrefix         string // prefix to the session files directory
	invokeCount        int
	NotUseNetwork      bool // replay previously recorded bodies instead of hitting the network
	SaveToFile         bool // record fetched bodies into the session directory
	ShowRequestHeader  bool
	ShowResponseHeader bool
	Log                Logger
	jar                *cookiejar.Jar
}

type RequestError struct {
	RequestURL *url.URL
	Err        error
}

func (err RequestError) Error() string {
	return fmt.Sprintf("%v request error: %v", err.RequestURL.String(), err.Err)
}

func (err RequestError) Unwrap() error { return err.Err }

type ResponseError struct {
	RequestURL *url.URL
	Response   *http.Response
}

func (err ResponseError) Error() string {
	return fmt.Sprintf("%v response code: %v", err.RequestURL.String(), err.Response.Status)
}

func NewSession(name string, log Logger) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		Name:      name,
		UserAgent: defaultUserAgent,
		client: http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
		Log: log,
		jar: jar,
	}
}

func (session *Session) Printf(format string, a ...interface{}) {
	session.Log.Printf(format, a...)
}

// SetTimeout bounds every request issued through the session.
func (session *Session) SetTimeout(d time.Duration) {
	session.client.Timeout = d
}

func (session *Session) Cookies(u *url.URL) []*http.Cookie {
	return session.client.Jar.Cookies(u)
}

func (session *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	session.client.Jar.SetCookies(u, cookies)
}

func (session *Session) LoadCookie() error {
	dirname := session.getDirectory()
	if err := os.MkdirAll(dirname, os.FileMode(0o744)); err != nil {
		return err
	}
	filename := fmt.Sprintf("%v/cookie", dirname)

	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:              filename,
		PersistSessionCookies: true,
	})
	if err == nil {
		session.jar = jar
		session.client.Jar = jar
	}
	return err
}

// SaveCookie stores cookies to a file.
// must call LoadCookie() before call SaveCookie().
func (session *Session) SaveCookie() error {
	return session.jar.Save()
}

// charsetEncoding maps the charsets the target's legacy endpoints still
// serve onto their decoders.
func charsetEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	}
	return nil
}

func convertEncodingToUtf8(body []byte, encoding encoding.Encoding) ([]byte, error) {
	if encoding == nil {
		return body, nil
	}
	b, _, err := transform.Bytes(encoding.NewDecoder(), body)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (session *Session) getDirectory() string {
	return fmt.Sprintf("%v%v", session.FilePrefix, session.Name)
}

func (session *Session) getBodyFilename() string {
	return path.Join(session.getDirectory(), fmt.Sprintf("%v.body", session.invokeCount))
}

func charsetFromContentType(contentType string) string {
	return regexp.MustCompile(".*charset=(.*)").ReplaceAllString(contentType, "$1")
}

func (session *Session) invoke(req *http.Request) (*Response, error) {
	var body []byte
	var contentType string

	if session.NotUseNetwork || session.SaveToFile {
		dirname := session.getDirectory()
		if _, err := os.Stat(dirname); err != nil && os.IsNotExist(err) {
			if err := os.MkdirAll(dirname, os.FileMode(0o744)); err != nil {
				return nil, err
			}
		}
	}

	session.invokeCount++
	filename := session.getBodyFilename()
	contentTypeFilename := filename + ".ContentType"

	if session.ShowRequestHeader {
		session.Printf("REQUEST: %v %v:\n", req.Method, req.URL.String())
	}

	if !session.NotUseNetwork {
		userAgent := session.UserAgent
		if userAgent == "" {
			userAgent = defaultUserAgent
		}
		req.Header.Set("User-agent", userAgent)
		req.Header.Set("Accept", "application/json,text/html,application/xhtml+xml,*/*;q=0.8")

		if session.ShowRequestHeader {
			session.Printf("Request header:{\n")
			for k, v := range req.Header {
				session.Printf("  %v: %v\n", k, v)
			}
			session.Printf("}\n")
		}

		response, err := session.client.Do(req)
		if err != nil {
			return nil, RequestError{req.URL, err}
		}
		defer response.Body.Close()

		req = response.Request // update req.URL after redirects

		if response.StatusCode/100 != 2 {
			return nil, ResponseError{req.URL, response}
		}

		if session.ShowResponseHeader {
			session.Printf("Response Header:\n")
			for k, v := range response.Header {
				session.Printf("  %v: %v\n", k, v)
			}
		}

		contentType = response.Header.Get("content-type")

		body, err = io.ReadAll(response.Body)
		if err != nil {
			return nil, err
		}

		if session.SaveToFile {
			session.Printf("**** SAVE to %v (%v bytes)\n", filename, len(body))
			if err := os.WriteFile(filename, body, os.FileMode(0o644)); err != nil {
				return nil, err
			}
			if err := os.WriteFile(contentTypeFilename, []byte(contentType), os.FileMode(0o644)); err != nil {
				return nil, err
			}
		}
	} else {
		session.Printf("**** LOAD from %v\n", filename)
		var err error
		body, err = os.ReadFile(filename)
		if err != nil {
			return nil, RetryAndRecordError{filename}
		}

		ct, err := os.ReadFile(contentTypeFilename)
		if err != nil {
			return nil, RetryAndRecordError{filename}
		}
		contentType = string(ct)
	}

	if session.ShowResponseHeader {
		session.Printf("Content-type: %v\n", contentType)
	}

	charSet := charsetFromContentType(contentType)

	encode := session.Encoding
	if encode == nil {
		encode = charsetEncoding(charSet)
	}
	if encode != nil {
		if session.ShowResponseHeader {
			session.Printf("converting from %v...\n", encode)
		}
		b, err := convertEncodingToUtf8(body, encode)
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &Response{
		Request:     req,
		ContentType: contentType,
		CharSet:     charSet,
		Body:        body,
		Encoding:    encode,
		Logger:      session,
	}, nil
}

// Get invokes an HTTP GET request.
func (session *Session) Get(getUrl string) (*Response, error) {
	req, err := http.NewRequest("GET", getUrl, nil)
	if err != nil {
		return nil, err
	}
	return session.invoke(req)
}

// GetContext is Get with a caller-supplied context bounding the request.
func (session *Session) GetContext(ctx context.Context, getUrl string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", getUrl, nil)
	if err != nil {
		return nil, err
	}
	return session.invoke(req)
}

// Response is one fetched body plus enough request context to decode it.
type Response struct {
	Request     *http.Request
	ContentType string
	CharSet     string
	Body        []byte
	Encoding    encoding.Encoding
	Logger      Logger
}

// CsvReader wraps the body in a BOM-stripping CSV reader. Exported pair
// lists commonly arrive with a UTF-8 BOM.
func (response *Response) CsvReader() *csv.Reader {
	return csv.NewReader(utfbom.SkipOnly(bytes.NewBuffer(response.Body)))
}

// JSON decodes the body into v.
func (response *Response) JSON(v interface{}) error {
	return json.Unmarshal(response.Body, v)
}

// Text returns the body as a string.
func (response *Response) Text() string {
	return string(response.Body)
}
