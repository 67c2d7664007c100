package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"speed/models"
)

// ArticleService owns the article lifecycle: submission, moderation review,
// search and duplicate detection.
type ArticleService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Mailer *Mailer
}

// NewArticleService creates a new instance of the ArticleService.
func NewArticleService(db *gorm.DB, logger *zap.Logger, mailer *Mailer) *ArticleService {
	return &ArticleService{DB: db, Logger: logger, Mailer: mailer}
}

// SubmitInput carries a new article submission.
type SubmitInput struct {
	CustomID       string
	Title          string
	Authors        string
	Source         string
	PubYear        string
	DOI            string
	Claim          string
	Evidence       models.EvidenceType
	SubmitterID    string
	SubmitterEmail string
}

// ReviewInput carries a moderator decision for a pending article.
type ReviewInput struct {
	Status        models.ArticleStatus
	ReviewComment string
	IsDuplicate   *bool
	DuplicateOf   string
}

// SearchParams are the optional filters of the advanced search.
type SearchParams struct {
	Keywords      string
	EvidenceType  string
	SortBy        string
	SortDirection string
	PubYearFrom   string
	PubYearTo     string
	Authors       string
	Status        string
	Source        string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern that treats s as
// literal text, so user input cannot smuggle LIKE wildcards in.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Columns the advanced search may sort by. Anything else falls back to
// created_at desc.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"pubyear":   "pubyear",
	"authors":   "authors",
	"source":    "source",
}

// FindAll returns all articles, optionally restricted to one status.
func (s *ArticleService) FindAll(status models.ArticleStatus) ([]models.Article, error) {
	query := s.DB.Model(&models.Article{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var articles []models.Article
	if err := query.Order("created_at desc").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// FindOne looks up a single article by its customId.
func (s *ArticleService) FindOne(id string) (*models.Article, error) {
	var article models.Article
	if err := s.DB.Where("custom_id = ?", id).First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// Submit persists a new article in Pending state. A blank customId is
// auto-generated from the highest existing numeric id; a taken customId
// yields ErrConflict. When another article already carries the same DOI the
// submission is stamped as its duplicate.
func (s *ArticleService) Submit(in SubmitInput) (*models.Article, error) {
	id := strings.TrimSpace(in.CustomID)
	if id == "" {
		generated, err := s.nextCustomID()
		if err != nil {
			return nil, err
		}
		id = generated
	}

	var count int64
	if err := s.DB.Model(&models.Article{}).Where("custom_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}

	article := models.Article{
		CustomID:       id,
		Title:          in.Title,
		Authors:        in.Authors,
		Source:         in.Source,
		PubYear:        in.PubYear,
		DOI:            in.DOI,
		Claim:          in.Claim,
		Evidence:       in.Evidence,
		Status:         models.StatusPending,
		SubmitterID:    in.SubmitterID,
		SubmitterEmail: in.SubmitterEmail,
	}

	// Stamp duplicate linkage when another article already has this DOI,
	// guarding against a self-reference.
	var existing models.Article
	err := s.DB.Where("doi = ?", in.DOI).First(&existing).Error
	switch {
	case err == nil:
		if existing.CustomID != id {
			article.IsDuplicate = true
			article.DuplicateOf = existing.CustomID
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no duplicate
	default:
		return nil, err
	}

	if err := s.DB.Create(&article).Error; err != nil {
		// Two submissions can pass the pre-check concurrently; the unique
		// constraint decides, and its failure maps to the same conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.Logger.Info("Article submitted",
		zap.String("custom_id", article.CustomID),
		zap.String("doi", article.DOI),
		zap.Bool("is_duplicate", article.IsDuplicate))
	return &article, nil
}

// nextCustomID scans all assigned custom ids and returns max(numeric)+1 as a
// string. Non-numeric ids are ignored.
func (s *ArticleService) nextCustomID() (string, error) {
	var ids []string
	if err := s.DB.Model(&models.Article{}).Where("custom_id <> ''").Pluck("custom_id", &ids).Error; err != nil {
		return "", err
	}
	max := 0
	for _, id := range ids {
		if n, err := strconv.Atoi(id); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1), nil
}

// Review applies a moderator decision to a pending article: status, reviewer
// and optional duplicate linkage. Marking an article as a duplicate of
// itself yields ErrSelfDuplicate and leaves the row untouched.
func (s *ArticleService) Review(id string, in ReviewInput, reviewerID string) (*models.Article, error) {
	article, err := s.FindOne(id)
	if err != nil {
		return nil, err
	}

	if in.IsDuplicate != nil {
		if *in.IsDuplicate {
			if in.DuplicateOf == id {
				return nil, ErrSelfDuplicate
			}
			article.IsDuplicate = true
			article.DuplicateOf = in.DuplicateOf
		} else {
			article.IsDuplicate = false
			article.DuplicateOf = ""
		}
	}

	article.Status = in.Status
	article.ReviewerID = reviewerID
	article.ReviewComment = in.ReviewComment

	if err := s.DB.Save(article).Error; err != nil {
		return nil, err
	}

	s.Logger.Info("Article reviewed",
		zap.String("custom_id", article.CustomID),
		zap.String("status", string(article.Status)),
		zap.String("reviewer", reviewerID))

	if s.Mailer != nil {
		// Best effort, failure is already logged by the mailer.
		s.Mailer.NotifyReviewDecision(article)
	}
	return article, nil
}

// Update overwrites the mutable fields of an article, keyed by customId.
func (s *ArticleService) Update(id string, in SubmitInput) (*models.Article, error) {
	article, err := s.FindOne(id)
	if err != nil {
		return nil, err
	}

	article.Title = in.Title
	article.Authors = in.Authors
	article.Source = in.Source
	article.PubYear = in.PubYear
	article.DOI = in.DOI
	article.Claim = in.Claim
	article.Evidence = in.Evidence

	if err := s.DB.Save(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

// Delete removes an article by customId and returns the removed row.
func (s *ArticleService) Delete(id string) (*models.Article, error) {
	article, err := s.FindOne(id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Delete(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

// Search runs the advanced search: every supplied filter is ANDed onto the
// base query, which matches Approved articles unless an explicit status is
// given. Invalid year bounds are dropped silently; unknown sort fields fall
// back to created_at desc. The full result set is returned, unpaginated.
func (s *ArticleService) Search(p SearchParams) ([]models.Article, error) {
	query := s.DB.Model(&models.Article{})

	status := models.StatusApproved
	if p.Status != "" {
		status = models.ArticleStatus(p.Status)
	}
	query = query.Where("status = ?", status)

	if kw := strings.TrimSpace(p.Keywords); kw != "" {
		pattern := likePattern(kw)
		query = query.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(authors) LIKE ? ESCAPE '\' OR LOWER(claim) LIKE ? ESCAPE '\' OR LOWER(source) LIKE ? ESCAPE '\' OR LOWER(doi) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	if p.EvidenceType != "" {
		query = query.Where("evidence = ?", p.EvidenceType)
	}
	if p.PubYearFrom != "" {
		if _, err := strconv.Atoi(p.PubYearFrom); err == nil {
			query = query.Where("pubyear >= ?", p.PubYearFrom)
		}
	}
	if p.PubYearTo != "" {
		if _, err := strconv.Atoi(p.PubYearTo); err == nil {
			query = query.Where("pubyear <= ?", p.PubYearTo)
		}
	}
	if p.Authors != "" {
		query = query.Where(`LOWER(authors) LIKE ? ESCAPE '\'`, likePattern(p.Authors))
	}
	if p.Source != "" {
		query = query.Where(`LOWER(source) LIKE ? ESCAPE '\'`, likePattern(p.Source))
	}

	column, ok := sortColumns[p.SortBy]
	direction := strings.ToLower(p.SortDirection)
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}
	if !ok {
		column, direction = "created_at", "desc"
	}

	var articles []models.Article
	if err := query.Order(fmt.Sprintf("%s %s", column, direction)).Find(&articles).Error; err != nil {
		s.Logger.Error("Article search failed", zap.Error(err))
		return nil, err
	}
	return articles, nil
}

// FindSimilarByDOI implements the duplicate heuristic: exact DOI matches are
// returned verbatim; otherwise up to five articles sharing the publisher
// prefix (the segment before the first slash, matched case-insensitively)
// are returned. A DOI without a slash yields an empty list. excludeID, when
// set, removes that article from consideration.
func (s *ArticleService) FindSimilarByDOI(doi, excludeID string) ([]models.Article, error) {
	doi = strings.TrimSpace(doi)

	exactQuery := s.DB.Where("doi = ?", doi)
	if excludeID != "" {
		exactQuery = exactQuery.Where("custom_id <> ?", excludeID)
	}
	var exact []models.Article
	if err := exactQuery.Find(&exact).Error; err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}

	slash := strings.Index(doi, "/")
	if slash < 0 {
		return []models.Article{}, nil
	}
	similarQuery := s.DB.Where(`LOWER(doi) LIKE ? ESCAPE '\'`, likePattern(doi[:slash])).Limit(5)
	if excludeID != "" {
		similarQuery = similarQuery.Where("custom_id <> ?", excludeID)
	}
	var similar []models.Article
	if err := similarQuery.Find(&similar).Error; err != nil {
		return nil, err
	}
	if similar == nil {
		similar = []models.Article{}
	}
	return similar, nil
}

// CountPending returns the size of the moderation queue.
func (s *ArticleService) CountPending() (int64, error) {
	var count int64
	err := s.DB.Model(&models.Article{}).Where("status = ?", models.StatusPending).Count(&count).Error
	return count, err
}
