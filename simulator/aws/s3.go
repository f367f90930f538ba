package awssim

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	sim "github.com/sockerless/cloudtour/simulator"
)

// S3 types

type S3Bucket struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
	Region       string `xml:"-"`
}

type S3Object struct {
	Bucket       string
	Key          string
	Data         []byte
	ContentType  string
	ETag         string
	LastModified time.Time
	Size         int64
	Metadata     map[string]string
}

// XML response types for S3

const s3Xmlns = "http://s3.amazonaws.com/doc/2006-03-01/"

type s3ListAllMyBucketsResult struct {
	XMLName xml.Name  `xml:"ListAllMyBucketsResult"`
	Xmlns   string    `xml:"xmlns,attr"`
	Owner   s3Owner   `xml:"Owner"`
	Buckets s3Buckets `xml:"Buckets"`
}

type s3Owner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

type s3Buckets struct {
	Bucket []S3Bucket `xml:"Bucket"`
}

type s3ListBucketResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	Xmlns                 string         `xml:"xmlns,attr"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	MaxKeys               int            `xml:"MaxKeys"`
	KeyCount              int            `xml:"KeyCount"`
	IsTruncated           bool           `xml:"IsTruncated"`
	Contents              []s3ObjectInfo `xml:"Contents"`
	ContinuationToken     string         `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	StartAfter            string         `xml:"StartAfter,omitempty"`
}

type s3ObjectInfo struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type s3CreateBucketConfiguration struct {
	LocationConstraint string `xml:"LocationConstraint"`
}

type s3LocationConstraint struct {
	XMLName xml.Name `xml:"LocationConstraint"`
	Xmlns   string   `xml:"xmlns,attr"`
	Value   string   `xml:",chardata"`
}

type s3DeleteRequest struct {
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
	Quiet bool `xml:"Quiet"`
}

type s3DeleteResult struct {
	XMLName xml.Name         `xml:"DeleteResult"`
	Xmlns   string           `xml:"xmlns,attr"`
	Deleted []s3DeletedEntry `xml:"Deleted"`
}

type s3DeletedEntry struct {
	Key string `xml:"Key"`
}

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

type s3Service struct {
	region  string
	buckets *sim.StateStore[S3Bucket]
	objects *sim.StateStore[S3Object]

	denyMu     sync.Mutex
	denyDelete []string // bucket name prefixes
}

func newS3Service(cfg sim.Config) *s3Service {
	return &s3Service{
		region:  cfg.Region,
		buckets: sim.NewStateStore[S3Bucket](),
		objects: sim.NewStateStore[S3Object](),
	}
}

// denyBucketDeletion makes DeleteBucket fail with AccessDenied for bucket
// names starting with prefix, as a bucket policy denying s3:DeleteBucket
// would.
func (s *s3Service) denyBucketDeletion(prefix string) {
	s.denyMu.Lock()
	defer s.denyMu.Unlock()
	s.denyDelete = append(s.denyDelete, prefix)
}

func (s *s3Service) deletionDenied(bucket string) bool {
	s.denyMu.Lock()
	defer s.denyMu.Unlock()
	for _, p := range s.denyDelete {
		if strings.HasPrefix(bucket, p) {
			return true
		}
	}
	return false
}

func s3ObjectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (s *s3Service) register(mux *http.ServeMux) {
	// S3 uses path-style URLs under /s3: /s3/{bucket} and /s3/{bucket}/{key...}
	mux.HandleFunc("GET /s3", s.handleListBuckets)
	mux.HandleFunc("GET /s3/{$}", s.handleListBuckets)
	mux.HandleFunc("PUT /s3/{bucket}", s.handleCreateBucket)
	mux.HandleFunc("HEAD /s3/{bucket}", s.handleHeadBucket)
	mux.HandleFunc("DELETE /s3/{bucket}", s.handleDeleteBucket)
	mux.HandleFunc("GET /s3/{bucket}", s.handleGetBucket)
	mux.HandleFunc("POST /s3/{bucket}", s.handlePostBucket)
	mux.HandleFunc("PUT /s3/{bucket}/{key...}", s.handlePutObject)
	mux.HandleFunc("GET /s3/{bucket}/{key...}", s.handleGetObject)
	mux.HandleFunc("HEAD /s3/{bucket}/{key...}", s.handleHeadObject)
	mux.HandleFunc("DELETE /s3/{bucket}/{key...}", s.handleDeleteObject)
}

func noSuchBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	sim.S3ErrorXML(w, "NoSuchBucket", "The specified bucket does not exist",
		bucket, sim.RequestID(r.Context()), http.StatusNotFound)
}

func (s *s3Service) objectsIn(bucket string) []S3Object {
	return s.objects.Filter(func(obj S3Object) bool { return obj.Bucket == bucket })
}

func (s *s3Service) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	result := s3ListAllMyBucketsResult{
		Xmlns: s3Xmlns,
		Owner: s3Owner{
			ID:          ec2Owner,
			DisplayName: "simulator",
		},
		Buckets: s3Buckets{
			Bucket: s.buckets.List(),
		},
	}
	sim.WriteXML(w, http.StatusOK, result)
}

func (s *s3Service) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")
	if !bucketNamePattern.MatchString(bucket) {
		sim.S3ErrorXML(w, "InvalidBucketName", "The specified bucket is not valid.", bucket, sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	region := s.region
	body, _ := io.ReadAll(r.Body)
	if len(bytes.TrimSpace(body)) > 0 {
		var conf s3CreateBucketConfiguration
		if err := xml.Unmarshal(body, &conf); err != nil {
			sim.S3ErrorXML(w, "MalformedXML", "The XML you provided was not well-formed", bucket, sim.RequestID(r.Context()), http.StatusBadRequest)
			return
		}
		if conf.LocationConstraint != "" {
			region = conf.LocationConstraint
		}
	}
	if region != s.region {
		sim.S3ErrorXML(w, "IllegalLocationConstraintException",
			fmt.Sprintf("The %s location constraint is incompatible for the region specific endpoint this request was sent to.", region),
			bucket, sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	b := S3Bucket{
		Name:         bucket,
		CreationDate: time.Now().UTC().Format(time.RFC3339),
		Region:       region,
	}
	if !s.buckets.PutIfAbsent(bucket, b) {
		sim.S3ErrorXML(w, "BucketAlreadyOwnedByYou",
			"Your previous request to create the named bucket succeeded and you already own it.",
			bucket, sim.RequestID(r.Context()), http.StatusConflict)
		return
	}

	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

func (s *s3Service) handleHeadBucket(w http.ResponseWriter, r *http.Request) {
	b, ok := s.buckets.Get(sim.PathParam(r, "bucket"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("x-amz-bucket-region", b.Region)
	w.WriteHeader(http.StatusOK)
}

func (s *s3Service) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")

	if _, ok := s.buckets.Get(bucket); !ok {
		noSuchBucket(w, r, bucket)
		return
	}
	if s.deletionDenied(bucket) {
		sim.S3ErrorXML(w, "AccessDenied", "Access Denied",
			bucket, sim.RequestID(r.Context()), http.StatusForbidden)
		return
	}
	if len(s.objectsIn(bucket)) > 0 {
		sim.S3ErrorXML(w, "BucketNotEmpty", "The bucket you tried to delete is not empty",
			bucket, sim.RequestID(r.Context()), http.StatusConflict)
		return
	}

	s.buckets.Delete(bucket)
	w.WriteHeader(http.StatusNoContent)
}

func (s *s3Service) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")
	b, ok := s.buckets.Get(bucket)
	if !ok {
		noSuchBucket(w, r, bucket)
		return
	}

	q := r.URL.Query()
	if _, ok := q["location"]; ok {
		loc := s3LocationConstraint{Xmlns: s3Xmlns}
		if b.Region != "us-east-1" {
			loc.Value = b.Region
		}
		sim.WriteXML(w, http.StatusOK, loc)
		return
	}

	prefix := q.Get("prefix")
	maxKeys := 1000
	if v := q.Get("max-keys"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxKeys = n
		}
	}
	after := q.Get("continuation-token")
	if after == "" {
		after = q.Get("start-after")
	}

	// Filter returns objects ordered by store key, which is bucket/key, so
	// keys come back in lexicographic order as S3 requires.
	objects := s.objects.Filter(func(obj S3Object) bool {
		return obj.Bucket == bucket && strings.HasPrefix(obj.Key, prefix) && obj.Key > after
	})

	contents := []s3ObjectInfo{}
	for _, obj := range objects {
		contents = append(contents, s3ObjectInfo{
			Key:          obj.Key,
			LastModified: obj.LastModified.UTC().Format(time.RFC3339),
			ETag:         obj.ETag,
			Size:         obj.Size,
			StorageClass: "STANDARD",
		})
	}

	result := s3ListBucketResult{
		Xmlns:             s3Xmlns,
		Name:              bucket,
		Prefix:            prefix,
		MaxKeys:           maxKeys,
		ContinuationToken: q.Get("continuation-token"),
		StartAfter:        q.Get("start-after"),
	}
	if len(contents) > maxKeys {
		contents = contents[:maxKeys]
		result.IsTruncated = true
		if maxKeys > 0 {
			result.NextContinuationToken = contents[maxKeys-1].Key
		}
	}
	result.Contents = contents
	result.KeyCount = len(contents)

	sim.WriteXML(w, http.StatusOK, result)
}

// handlePostBucket serves multi-object delete (POST /{bucket}?delete).
func (s *s3Service) handlePostBucket(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")
	if _, ok := r.URL.Query()["delete"]; !ok {
		sim.S3ErrorXML(w, "NotImplemented", "A header you provided implies functionality that is not implemented",
			bucket, sim.RequestID(r.Context()), http.StatusNotImplemented)
		return
	}
	if _, ok := s.buckets.Get(bucket); !ok {
		noSuchBucket(w, r, bucket)
		return
	}

	body, err := readS3Body(r)
	if err != nil {
		sim.S3ErrorXML(w, "InternalError", "Failed to read request body", bucket, sim.RequestID(r.Context()), http.StatusInternalServerError)
		return
	}
	var req s3DeleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		sim.S3ErrorXML(w, "MalformedXML", "The XML you provided was not well-formed", bucket, sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}
	if len(req.Objects) > 1000 {
		sim.S3ErrorXML(w, "MalformedXML", "The XML you provided was not well-formed", bucket, sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	result := s3DeleteResult{Xmlns: s3Xmlns}
	for _, obj := range req.Objects {
		s.objects.Delete(s3ObjectKey(bucket, obj.Key))
		if !req.Quiet {
			result.Deleted = append(result.Deleted, s3DeletedEntry{Key: obj.Key})
		}
	}
	sim.WriteXML(w, http.StatusOK, result)
}

func (s *s3Service) handlePutObject(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")
	key := sim.PathParam(r, "key")

	if _, ok := s.buckets.Get(bucket); !ok {
		noSuchBucket(w, r, bucket)
		return
	}

	body, err := readS3Body(r)
	if err != nil {
		sim.S3ErrorXML(w, "InternalError", "Failed to read request body",
			key, sim.RequestID(r.Context()), http.StatusInternalServerError)
		return
	}

	hash := md5.Sum(body)
	etag := fmt.Sprintf("\"%x\"", hash)

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Collect user metadata from x-amz-meta-* headers
	metadata := make(map[string]string)
	for k, v := range r.Header {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "x-amz-meta-") && len(v) > 0 {
			metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = v[0]
		}
	}

	s.objects.Put(s3ObjectKey(bucket, key), S3Object{
		Bucket:       bucket,
		Key:          key,
		Data:         body,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: time.Now(),
		Size:         int64(len(body)),
		Metadata:     metadata,
	})

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
}

func writeObjectHeaders(w http.ResponseWriter, obj S3Object) {
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	for k, v := range obj.Metadata {
		w.Header().Set("x-amz-meta-"+k, v)
	}
}

func (s *s3Service) handleGetObject(w http.ResponseWriter, r *http.Request) {
	bucket := sim.PathParam(r, "bucket")
	key := sim.PathParam(r, "key")

	obj, ok := s.objects.Get(s3ObjectKey(bucket, key))
	if !ok {
		sim.S3ErrorXML(w, "NoSuchKey", "The specified key does not exist.",
			key, sim.RequestID(r.Context()), http.StatusNotFound)
		return
	}

	writeObjectHeaders(w, obj)
	http.ServeContent(w, r, key, obj.LastModified, bytes.NewReader(obj.Data))
}

func (s *s3Service) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.objects.Get(s3ObjectKey(sim.PathParam(r, "bucket"), sim.PathParam(r, "key")))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
}

func (s *s3Service) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	s.objects.Delete(s3ObjectKey(sim.PathParam(r, "bucket"), sim.PathParam(r, "key")))

	// S3 returns 204 even if the object didn't exist
	w.WriteHeader(http.StatusNoContent)
}

// readS3Body returns the request payload, undoing aws-chunked framing when
// the SDK streamed the body with a trailing checksum.
func readS3Body(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return decodeAWSChunked(body)
	}
	return body, nil
}

// decodeAWSChunked strips aws-chunked framing:
//
//	<hex-size>[;chunk-signature=...]\r\n<data>\r\n ... 0\r\n<trailers>\r\n\r\n
func decodeAWSChunked(body []byte) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(body))
	var out bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("aws-chunked: reading chunk header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(line, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("aws-chunked: bad chunk size %q: %w", line, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, fmt.Errorf("aws-chunked: short chunk: %w", err)
		}
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("aws-chunked: missing chunk terminator: %w", err)
		}
	}
}
