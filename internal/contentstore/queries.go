package contentstore

// eventFields is the projection shared by the list and detail queries.
const eventFields = `
    _id,
    _updatedAt,
    title,
    "slug": slug.current,
    category,
    areas,
    area,
    startDate,
    endDate,
    location,
    organizer,
    introText,
    ticketLink,
    ticketLinkText,
    imageUrl,
    imageAlt,
    "image": image{"assetRef": asset._ref, "url": asset->url, alt}`

const eventsQuery = `*[_type == "event"] | order(startDate asc) {` + eventFields + `,
    htmlContent,
    content
  }`

const eventBySlugQuery = `*[_type == "event" && slug.current == $slug][0] {` + eventFields + `,
    htmlContent,
    content
  }`

const legacyHTMLQuery = `*[_type == "event" && defined(htmlContent)] { _id, title, htmlContent }`

const contentStateQuery = `*[_type == "event"] { _id, title, "hasContent": defined(content) && length(content) > 0 }`

const imageURLQuery = `*[_type == "event" && defined(imageUrl)] { _id, title, imageUrl, imageAlt }`
