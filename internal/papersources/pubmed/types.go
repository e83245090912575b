// Package pubmed provides a client for the NCBI E-utilities PubMed API.
//
// A search is two requests: esearch resolves the query to PMIDs and efetch
// returns the article records. NCBI asks every caller to identify itself with
// an email address, so the client reports itself disabled without one.
//
// API Documentation: https://www.ncbi.nlm.nih.gov/books/NBK25500/
package pubmed

import "encoding/xml"

// ESearchResult is the esearch.fcgi response.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	IDList    IDList     `xml:"IdList"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
}

// IDList holds the matched PMIDs.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList reports query terms PubMed could not resolve.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// PubmedArticleSet is the efetch.fcgi response.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle is one article record.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

// MedlineCitation contains the core bibliographic information.
type MedlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article Article `xml:"Article"`
}

// Article holds title, abstract, authors and journal.
type Article struct {
	Journal      Journal       `xml:"Journal"`
	ArticleTitle string        `xml:"ArticleTitle"`
	ELocationIDs []ELocationID `xml:"ELocationID"`
	Abstract     *Abstract     `xml:"Abstract"`
	AuthorList   *AuthorList   `xml:"AuthorList"`
	ArticleDates []ArticleDate `xml:"ArticleDate"`
}

// Journal describes the publishing journal.
type Journal struct {
	Title           string       `xml:"Title"`
	ISOAbbreviation string       `xml:"ISOAbbreviation"`
	JournalIssue    JournalIssue `xml:"JournalIssue"`
}

// JournalIssue carries the issue publication date.
type JournalIssue struct {
	PubDate PubDate `xml:"PubDate"`
}

// PubDate is the issue date. MedlineDate is used for ranges such as "2020 Jan-Feb".
type PubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

// ELocationID is an electronic identifier such as a DOI.
type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Valid   string `xml:"ValidYN,attr"`
	Value   string `xml:",chardata"`
}

// Abstract may be split into labelled sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
}

// AbstractText is one abstract section.
type AbstractText struct {
	Label string `xml:"Label,attr"`
	Value string `xml:",chardata"`
}

// AuthorList is the article author list.
type AuthorList struct {
	Authors []Author `xml:"Author"`
}

// Author is a person or a collective.
type Author struct {
	ValidYN         string            `xml:"ValidYN,attr"`
	LastName        string            `xml:"LastName"`
	ForeName        string            `xml:"ForeName"`
	CollectiveName  string            `xml:"CollectiveName"`
	AffiliationInfo []AffiliationInfo `xml:"AffiliationInfo"`
}

// AffiliationInfo is an author affiliation.
type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

// ArticleDate is the electronic publication date.
type ArticleDate struct {
	DateType string `xml:"DateType,attr"`
	Year     string `xml:"Year"`
}

// PubmedData carries identifiers beyond the PMID.
type PubmedData struct {
	ArticleIDList ArticleIDList `xml:"ArticleIdList"`
}

// ArticleIDList lists alternate identifiers.
type ArticleIDList struct {
	ArticleIDs []ArticleID `xml:"ArticleId"`
}

// ArticleID is one alternate identifier.
type ArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
