// Package identification reconciles scraped titles with TMDB so each catalog
// entry can carry a stable IMDb id.
//
// The Resolver issues up to four search permutations (title with year and
// region, title with region, title with year, bare title), merges the results,
// and ranks them in strict tiers: an exact title match with matching year and
// source language beats exact+year, which beats exact+language, which beats a
// bare exact match. Popularity only breaks ties inside a tier. Candidates whose
// title does not match exactly are never considered. The highest ranked
// candidates are then validated by fetching details; the first one carrying an
// IMDb id wins.
package identification
