package statcrab

// Every query selects rateLimit so the client can inspect the remaining
// quota after each response.

const userStatsQuery = `
query UserStats($login: String!, $after: String, $first: Int!) {
  rateLimit {
    limit
    remaining
    used
    resetAt
  }
  user(login: $login) {
    name
    login
    contributionsCollection {
      totalCommitContributions
      totalPullRequestReviewContributions
    }
    pullRequests(first: 1) {
      totalCount
    }
    mergedPullRequests: pullRequests(states: MERGED) {
      totalCount
    }
    openIssues: issues(states: OPEN) {
      totalCount
    }
    closedIssues: issues(states: CLOSED) {
      totalCount
    }
    followers {
      totalCount
    }
    repositoryDiscussions {
      totalCount
    }
    repositoryDiscussionComments(onlyAnswers: true) {
      totalCount
    }
    repositories(first: $first, ownerAffiliations: OWNER, orderBy: {direction: DESC, field: STARGAZERS}, after: $after) {
      nodes {
        id
        name
        isFork
        isPrivate
        forkCount
        owner {
          login
        }
        stargazers {
          totalCount
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`

const userReposQuery = `
query UserRepos($login: String!, $after: String, $first: Int!) {
  rateLimit {
    limit
    remaining
    used
    resetAt
  }
  user(login: $login) {
    repositories(first: $first, ownerAffiliations: OWNER, orderBy: {direction: DESC, field: STARGAZERS}, after: $after) {
      nodes {
        id
        name
        isFork
        isPrivate
        forkCount
        owner {
          login
        }
        stargazers {
          totalCount
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`

const userLanguagesQuery = `
query UserLanguages($login: String!, $after: String, $first: Int!) {
  rateLimit {
    limit
    remaining
    used
    resetAt
  }
  user(login: $login) {
    repositories(first: $first, ownerAffiliations: OWNER, isFork: false, after: $after) {
      nodes {
        id
        name
        isFork
        isPrivate
        forkCount
        owner {
          login
        }
        stargazers {
          totalCount
        }
        languages(first: 10, orderBy: {field: SIZE, direction: DESC}) {
          edges {
            size
            node {
              name
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`
